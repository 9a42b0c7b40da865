// Package identifier holds the pure text rules for legal-process numbers.
//
// The primary use cases are:
//   - Normalizing raw input down to its ASCII digits
//   - Decoding 10-digit legacy numbers into a registry search key
//   - Extracting candidate numbers from pasted free-form text
//
// Nothing here touches storage. Legacy decoding never fails on a 10-digit
// input; inputs of any other length are reported as not applicable so the
// caller can fall through to other strategies.
package identifier
