// Package api serves the registry over HTTP. Routes mirror the screens of
// the archive's web front end: single-number checks, pasted-batch
// reconciliation, box audits, and the listing workflow.
//
// # Payloads
//
// Check and box payloads keep the field names the original front end reads
// (encontrado, caixa_origem, situacao, ...). Batch and listing payloads are
// the reconcile and listing types encoded as snake_case JSON.
//
// # Operators
//
// Listings belong to an operator. Requests name the operator in the
// X-Operator header; there is no user authentication beyond the optional
// bearer token, which guards the whole /api tree.
//
// # Errors
//
// Failures are {"error": "..."} with a status derived from the sentinel
// errors of the registry and listing packages.
package api
