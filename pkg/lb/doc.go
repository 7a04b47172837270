// Package lb is C9: see Builder.Rebuild for the exact rule construction
// order this package guarantees.
package lb
