// Package overlay is the IP allocator (C3) for the flat L3 overlay network
// the core presumes is already configured: it does not bring the interface
// up or route traffic, only picks the next free host address on it.
package overlay
