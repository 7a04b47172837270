package overlay

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vishvananda/netlink"
)

// UsedOctets returns the set of 10.10.10.* last octets already claimed on
// this node, keyed by octet for NextFree. It unions every local source this
// node can see without asking a peer: ARP neighbours on the overlay link,
// running/stopped Docker containers' wolfnet.ip labels, and cloned LXC
// containers' marker files. A failure in any one source is non-fatal — each
// is best-effort, since a freshly booted node may have no ARP entries yet
// and a docker-only node has no /var/lib/lxc tree — and only an error from
// every source is returned, since at that point the caller has nothing to
// work with. Addresses in use only on peer nodes are not included, and no
// caller adds them: allocation sees this node's own sources alone.
func UsedOctets(linkName string) (map[int]bool, error) {
	used := make(map[int]bool)
	var firstErr error
	sawAny := false

	if arp, err := arpUsedOctets(linkName); err != nil {
		firstErr = err
	} else {
		sawAny = true
		for o := range arp {
			used[o] = true
		}
	}

	if labels, err := dockerLabelOctets(); err == nil {
		sawAny = true
		for o := range labels {
			used[o] = true
		}
	}

	if markers, err := lxcMarkerOctets(); err == nil {
		sawAny = true
		for o := range markers {
			used[o] = true
		}
	}

	if !sawAny {
		return nil, firstErr
	}
	return used, nil
}

// arpUsedOctets scans the overlay link's ARP table.
func arpUsedOctets(linkName string) (map[int]bool, error) {
	link, err := netlink.LinkByName(linkName)
	if err != nil {
		return nil, fmt.Errorf("lookup link %s: %w", linkName, err)
	}

	neighs, err := netlink.NeighList(link.Attrs().Index, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("list neighbours on %s: %w", linkName, err)
	}

	used := make(map[int]bool)
	for _, n := range neighs {
		if octet, ok := octetOf(n.IP); ok {
			used[octet] = true
		}
	}
	return used, nil
}

// dockerLabelOctets reads the wolfnet.ip label docker.go stamps on every
// container it creates, including stopped ones, which the ARP table alone
// would miss.
func dockerLabelOctets() (map[int]bool, error) {
	out, err := exec.Command("docker", "ps", "-a", "--format", `{{index .Labels "wolfnet.ip"}}`).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("docker ps: %w", err)
	}

	used := make(map[int]bool)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if octet, ok := octetOf(net.ParseIP(line)); ok {
			used[octet] = true
		}
	}
	return used, nil
}

// lxcMarkerOctets reads every cloned LXC container's marker file written by
// WriteLxcMarker.
func lxcMarkerOctets() (map[int]bool, error) {
	matches, err := filepath.Glob("/var/lib/lxc/*/.wolfnet/ip")
	if err != nil {
		return nil, fmt.Errorf("glob lxc markers: %w", err)
	}

	used := make(map[int]bool)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if octet, ok := octetOf(net.ParseIP(strings.TrimSpace(string(data)))); ok {
			used[octet] = true
		}
	}
	return used, nil
}

// AssignVIP idempotently ensures addr/32 is present on the overlay link.
func AssignVIP(linkName, addr string) error {
	link, err := netlink.LinkByName(linkName)
	if err != nil {
		return fmt.Errorf("lookup link %s: %w", linkName, err)
	}

	ipNet := &net.IPNet{IP: net.ParseIP(addr), Mask: net.CIDRMask(32, 32)}
	existing, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return fmt.Errorf("list addrs on %s: %w", linkName, err)
	}
	for _, a := range existing {
		if a.IP.Equal(ipNet.IP) {
			return nil
		}
	}

	return netlink.AddrAdd(link, &netlink.Addr{IPNet: ipNet})
}

// RemoveVIP best-effort removes addr/32 from the overlay link. A missing
// address or link is not an error: teardown may race a prior teardown.
func RemoveVIP(linkName, addr string) error {
	link, err := netlink.LinkByName(linkName)
	if err != nil {
		return nil
	}
	ipNet := &net.IPNet{IP: net.ParseIP(addr), Mask: net.CIDRMask(32, 32)}
	_ = netlink.AddrDel(link, &netlink.Addr{IPNet: ipNet})
	return nil
}

// octetOf returns ip's last octet if ip falls within the overlay subnet.
func octetOf(ip net.IP) (int, bool) {
	v4 := ip.To4()
	if v4 == nil || v4[0] != 10 || v4[1] != 10 || v4[2] != 10 {
		return 0, false
	}
	return int(v4[3]), true
}

// LxcMarkerPath is where a cloned LXC container's overlay address is
// recorded, per the persisted state layout.
func LxcMarkerPath(containerName string) string {
	return filepath.Join("/var/lib/lxc", containerName, ".wolfnet", "ip")
}

// ReadLxcMarker reads the overlay IP an LXC container was assigned, if any.
func ReadLxcMarker(containerName string) (string, bool) {
	data, err := os.ReadFile(LxcMarkerPath(containerName))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// WriteLxcMarker persists containerName's overlay address for later reads.
func WriteLxcMarker(containerName, addr string) error {
	path := LxcMarkerPath(containerName)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	return os.WriteFile(path, []byte(addr+"\n"), 0644)
}
