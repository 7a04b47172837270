package runtime

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wolfstacksystems/wolfstack/pkg/metrics"
	"github.com/wolfstacksystems/wolfstack/pkg/overlay"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// LxcAdapter drives the host's lxc-* CLI tools.
type LxcAdapter struct{}

func (l *LxcAdapter) runOp(ctx context.Context, op, name string, args ...string) (string, error) {
	timer := metrics.NewTimer()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	timer.ObserveDurationVec(metrics.RuntimeOpDuration, "lxc", op)
	if err != nil {
		metrics.RuntimeOpErrorsTotal.WithLabelValues("lxc", op).Inc()
		return "", fmt.Errorf("%s %s: %w: %s", name, op, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// List runs `lxc-ls -f -F NAME,STATE,IPV4` and overlays each container's
// wolfnet marker-file IP, since lxc-ls only reports the lxcbr0 address.
func (l *LxcAdapter) List(ctx context.Context, all bool) ([]types.ContainerInfo, error) {
	out, err := l.runOp(ctx, "list", "lxc-ls", "-f", "-F", "NAME,STATE,IPV4")
	if err != nil {
		return nil, err
	}

	lines := strings.Split(out, "\n")
	var containers []types.ContainerInfo
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // header row
		}
		fields := strings.Fields(line)
		name := fields[0]
		state := ""
		if len(fields) > 1 {
			state = strings.ToLower(fields[1])
		}
		if !all && state != "running" {
			continue
		}

		ip := ""
		if marker, ok := overlay.ReadLxcMarker(name); ok {
			ip = marker
		}

		containers = append(containers, types.ContainerInfo{
			Name:      name,
			State:     state,
			Status:    state,
			IPAddress: ip,
			Runtime:   types.RuntimeLxc,
		})
	}
	return containers, nil
}

// Create clones from a distribution template via lxc-create.
func (l *LxcAdapter) Create(ctx context.Context, spec CreateSpec) error {
	cfg := types.DefaultLxcConfig()
	if spec.Lxc != nil {
		cfg = *spec.Lxc
	}

	_, err := l.runOp(ctx, "create", "lxc-create",
		"-n", spec.Name,
		"-t", "download",
		"--",
		"-d", cfg.Distribution,
		"-r", cfg.Release,
		"-a", cfg.Architecture,
	)
	if err != nil {
		return err
	}

	if spec.WolfnetIP != "" {
		if err := overlay.WriteLxcMarker(spec.Name, spec.WolfnetIP); err != nil {
			return fmt.Errorf("write wolfnet marker for %s: %w", spec.Name, err)
		}
	}
	return nil
}

func (l *LxcAdapter) Start(ctx context.Context, name string) error {
	_, err := l.runOp(ctx, "start", "lxc-start", "-n", name, "-d")
	return err
}

func (l *LxcAdapter) Stop(ctx context.Context, name string) error {
	_, err := l.runOp(ctx, "stop", "lxc-stop", "-n", name)
	return err
}

func (l *LxcAdapter) Destroy(ctx context.Context, name string) error {
	_, err := l.runOp(ctx, "destroy", "lxc-destroy", "-n", name)
	return err
}

// Clone runs lxc-copy to produce newName from an existing template
// container, carrying over the template's wolfnet marker if present.
func (l *LxcAdapter) Clone(ctx context.Context, name, newName string) error {
	_, err := l.runOp(ctx, "clone", "lxc-copy", "-n", name, "-N", newName)
	if err != nil {
		return err
	}
	if marker, ok := overlay.ReadLxcMarker(name); ok {
		_ = overlay.WriteLxcMarker(newName, marker)
	}
	return nil
}

// Pull has no LXC analogue; templates are fetched by Create's "download"
// template, not as a separate step.
func (l *LxcAdapter) Pull(ctx context.Context, image string) error {
	return fmt.Errorf("lxc runtime does not support a separate pull step")
}
