// Package lb builds and tears down the kernel-level DNAT rules (C9) that
// round-robin a service's VIP across its running instances: no userspace
// proxy, no per-flow state, just iptables' own nth-packet statistic match.
package lb

import (
	"fmt"
	"strconv"
	"strings"

	iptables "github.com/coreos/go-iptables/iptables"
	"github.com/wolfstacksystems/wolfstack/pkg/overlay"
)

// Builder programs and removes a service's load-balancer rules.
type Builder struct {
	ipt  *iptables.IPTables
	link string
}

// NewBuilder returns a Builder targeting the given overlay link (normally
// overlay.Interface).
func NewBuilder(link string) (*Builder, error) {
	ipt, err := iptables.New()
	if err != nil {
		return nil, fmt.Errorf("init iptables: %w", err)
	}
	return &Builder{ipt: ipt, link: link}, nil
}

func comment(vip string) string {
	return fmt.Sprintf("wolfrun-lb-%s", vip)
}

// Teardown removes every PREROUTING/POSTROUTING nat rule tagged for vip and
// best-effort removes vip/32 from the overlay link.
func (b *Builder) Teardown(vip string) error {
	tag := comment(vip)
	if err := b.deleteTagged("PREROUTING", tag); err != nil {
		return err
	}
	if err := b.deleteTagged("POSTROUTING", tag); err != nil {
		return err
	}
	_ = overlay.RemoveVIP(b.link, vip)
	return nil
}

// deleteTagged repeatedly finds and deletes the first rule in chain whose
// comment matches tag, since go-iptables has no single "delete by comment"
// primitive: after each delete, the remaining rules' line numbers shift.
func (b *Builder) deleteTagged(chain, tag string) error {
	for {
		rules, err := b.ipt.List("nat", chain)
		if err != nil {
			return fmt.Errorf("list nat %s: %w", chain, err)
		}
		line, found := findByComment(rules, tag)
		if !found {
			return nil
		}
		if err := b.ipt.Delete("nat", chain, strconv.Itoa(line)); err != nil {
			return fmt.Errorf("delete nat %s rule %d: %w", chain, line, err)
		}
	}
}

// findByComment returns the 1-based line number (within List's rule body,
// skipping the leading "-N chain" header) of the first rule carrying
// --comment tag, as go-iptables' List returns full rule specs as strings.
func findByComment(rules []string, tag string) (int, bool) {
	quoted := fmt.Sprintf("--comment %q", tag)
	line := 0
	for _, r := range rules {
		if !strings.HasPrefix(r, "-A ") {
			continue
		}
		line++
		if strings.Contains(r, quoted) {
			return line, true
		}
	}
	return 0, false
}

// Port is one service port mapping; only Container is used for DNAT.
type Port struct {
	Container int
}

// Rebuild tears down vip's existing rules and, if backends is non-empty,
// programs a fresh round-robin: k DNAT rules using the nth/every/packet-0
// statistic match plus one MASQUERADE rule for return traffic.
func (b *Builder) Rebuild(vip string, backends []string, ports []Port) error {
	if err := b.Teardown(vip); err != nil {
		return err
	}
	if len(backends) == 0 {
		return nil
	}

	if err := overlay.AssignVIP(b.link, vip); err != nil {
		return fmt.Errorf("assign vip %s: %w", vip, err)
	}

	tag := comment(vip)
	k := len(backends)
	for i, backend := range backends {
		every := k - i
		args := []string{"-d", vip}
		if len(ports) > 0 {
			for _, p := range ports {
				args = append(args, "-p", "tcp", "--dport", strconv.Itoa(p.Container))
			}
		}
		if i < k-1 {
			args = append(args, "-m", "statistic", "--mode", "nth", "--every", strconv.Itoa(every), "--packet", "0")
		}
		to := backend
		if len(ports) == 1 {
			to = fmt.Sprintf("%s:%d", backend, ports[0].Container)
		}
		args = append(args, "-m", "comment", "--comment", tag, "-j", "DNAT", "--to-destination", to)

		if err := b.ipt.Append("nat", "PREROUTING", args...); err != nil {
			return fmt.Errorf("install dnat rule %d for vip %s: %w", i, vip, err)
		}
	}

	masqArgs := []string{"-d", strings.Join(backends, ","), "-m", "comment", "--comment", tag, "-j", "MASQUERADE"}
	if err := b.ipt.Append("nat", "POSTROUTING", masqArgs...); err != nil {
		return fmt.Errorf("install masquerade rule for vip %s: %w", vip, err)
	}

	return nil
}
