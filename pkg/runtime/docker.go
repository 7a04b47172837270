package runtime

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/wolfstacksystems/wolfstack/pkg/metrics"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// DockerAdapter drives the host's docker CLI.
type DockerAdapter struct{}

func (d *DockerAdapter) runOp(ctx context.Context, op string, args ...string) (string, error) {
	timer := metrics.NewTimer()
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	timer.ObserveDurationVec(metrics.RuntimeOpDuration, "docker", op)
	if err != nil {
		metrics.RuntimeOpErrorsTotal.WithLabelValues("docker", op).Inc()
		return "", fmt.Errorf("docker %s: %w: %s", op, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// List runs `docker ps [-a] --format ...` and enriches each row with its
// wolfnet.ip label and bridge network IP via a follow-up inspect call.
func (d *DockerAdapter) List(ctx context.Context, all bool) ([]types.ContainerInfo, error) {
	args := []string{"ps", "--no-trunc", "--format",
		"{{.ID}}\t{{.Names}}\t{{.Image}}\t{{.Status}}\t{{.State}}\t{{.Ports}}"}
	if all {
		args = append(args, "-a")
	}

	out, err := d.runOp(ctx, "list", args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var containers []types.ContainerInfo
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		info := types.ContainerInfo{
			ID:      field(parts, 0),
			Name:    field(parts, 1),
			Image:   field(parts, 2),
			Status:  field(parts, 3),
			State:   strings.ToLower(field(parts, 4)),
			Runtime: types.RuntimeDocker,
		}
		if p := field(parts, 5); p != "" {
			info.Ports = strings.Split(p, ", ")
		}
		info.IPAddress = d.resolveIP(ctx, info.Name, info.State)
		containers = append(containers, info)
	}
	return containers, nil
}

// resolveIP prefers the wolfnet.ip label (valid even when stopped); if the
// container is running and also has a distinct bridge-network IP, the
// wolfnet IP is annotated " (wolfnet)" to make the dual-address case visible.
func (d *DockerAdapter) resolveIP(ctx context.Context, name, state string) string {
	fmtStr := `{{index .Config.Labels "wolfnet.ip"}}|{{range .NetworkSettings.Networks}}{{.IPAddress}} {{end}}`
	out, err := d.runOp(ctx, "inspect", "inspect", "-f", fmtStr, name)
	if err != nil {
		return ""
	}

	parts := strings.SplitN(out, "|", 2)
	wolfnetIP := strings.TrimSpace(parts[0])
	if wolfnetIP == "<no value>" {
		wolfnetIP = ""
	}
	var bridgeIP string
	if len(parts) > 1 {
		for _, candidate := range strings.Fields(parts[1]) {
			if looksLikeIPv4(candidate) {
				bridgeIP = candidate
				break
			}
		}
	}

	if wolfnetIP == "" {
		return bridgeIP
	}
	if state == "running" && bridgeIP != "" && bridgeIP != wolfnetIP {
		return wolfnetIP + " (wolfnet)"
	}
	return wolfnetIP
}

func looksLikeIPv4(s string) bool {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		if _, err := strconv.Atoi(o); err != nil {
			return false
		}
	}
	return true
}

func field(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// Create runs `docker create`, labelling the container with its overlay IP
// (if any) as wolfnet.ip, which List and the overlay allocator read back.
// Start does not consult the label.
func (d *DockerAdapter) Create(ctx context.Context, spec CreateSpec) error {
	args := []string{"create", "--name", spec.Name, "-it", "--restart", "unless-stopped"}

	if spec.WolfnetIP != "" {
		args = append(args, "--label", "wolfnet.ip="+spec.WolfnetIP)
	}
	for _, v := range spec.Volumes {
		args = append(args, "-v", v)
	}
	for _, p := range spec.Ports {
		args = append(args, "-p", p)
	}
	for _, e := range spec.Env {
		args = append(args, "-e", e)
	}
	args = append(args, spec.Image)

	_, err := d.runOp(ctx, "create", args...)
	return err
}

func (d *DockerAdapter) Start(ctx context.Context, name string) error {
	_, err := d.runOp(ctx, "start", "start", name)
	return err
}

func (d *DockerAdapter) Stop(ctx context.Context, name string) error {
	_, err := d.runOp(ctx, "stop", "stop", name)
	return err
}

func (d *DockerAdapter) Destroy(ctx context.Context, name string) error {
	_, err := d.runOp(ctx, "destroy", "rm", "-f", name)
	return err
}

func (d *DockerAdapter) Clone(ctx context.Context, name, newName string) error {
	_, err := d.runOp(ctx, "clone", "commit", name, newName+"-image")
	if err != nil {
		return err
	}
	_, err = d.runOp(ctx, "clone", "create", "--name", newName, newName+"-image")
	return err
}

func (d *DockerAdapter) Pull(ctx context.Context, image string) error {
	_, err := d.runOp(ctx, "pull", "pull", image)
	return err
}
