// Package overlay allocates addresses on the flat L3 overlay subnet
// (10.10.10.0/24, interface wolfnet0) and reads the overlay's ARP table for
// addresses currently in use there.
package overlay

import "fmt"

const (
	// Subnet is the overlay network's CIDR.
	Subnet = "10.10.10.0/24"
	// Interface is the overlay link's name.
	Interface = "wolfnet0"

	rangeStart = 100
	rangeEnd   = 254
	fallback   = 100
)

// NextFree returns the first free host address in 10.10.10.100..254 given
// the last octets already known to be in use. If the range is exhausted it
// returns 10.10.10.100 as a hint; the caller must resolve any resulting
// collision by later observation, not by trusting this value blindly.
// Pure and stateless: the caller assembles `used`; in this module that is
// UsedOctets (local Docker labels, LXC markers and ARP neighbours).
func NextFree(used map[int]bool) string {
	for octet := rangeStart; octet <= rangeEnd; octet++ {
		if !used[octet] {
			return addr(octet)
		}
	}
	return addr(fallback)
}

func addr(octet int) string {
	return fmt.Sprintf("10.10.10.%d", octet)
}
