// Package resolver decides whether a raw process number corresponds to a
// registry record.
//
// Resolution tries, in order: the raw input verbatim, its normalized digits,
// and, for 10-digit legacy numbers, the decoded year prefix plus sequence
// fragment. Among legacy candidates the first permanent record wins; without
// one the first candidate in registry order is taken. Only registry failures
// are returned as errors; every other outcome is a Result.
package resolver
