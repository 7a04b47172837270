// Package runtime is the container adapter (C2): a thin polymorphic surface
// over two runtimes, docker and lxc, each implemented by shelling out to its
// own CLI and parsing its text output — there is no gRPC/OCI client here,
// because the adapter's job is to drive whatever is already installed on
// the host, not to be a runtime itself.
package runtime

import (
	"context"
	"os/exec"

	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// CreateSpec is the runtime-agnostic request to create a container.
type CreateSpec struct {
	Name      string
	Image     string // docker only
	Ports     []string
	Env       []string
	Volumes   []string
	WolfnetIP string
	Lxc       *types.LxcConfig // lxc only
}

// Adapter is the capability set every runtime exposes to the reconciler.
type Adapter interface {
	// List enumerates containers; all=false restricts to running ones.
	List(ctx context.Context, all bool) ([]types.ContainerInfo, error)
	Create(ctx context.Context, spec CreateSpec) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Destroy(ctx context.Context, name string) error
	Clone(ctx context.Context, name, newName string) error
	Pull(ctx context.Context, image string) error
}

// For builds the Adapter for the given runtime kind.
func For(rt types.Runtime) Adapter {
	switch rt {
	case types.RuntimeLxc:
		return &LxcAdapter{}
	default:
		return &DockerAdapter{}
	}
}

// DetectCapabilities reports which runtimes this host can drive, by
// checking for their CLI tools on PATH.
func DetectCapabilities() (hasDocker, hasLxc bool) {
	_, dockerErr := exec.LookPath("docker")
	_, lxcErr := exec.LookPath("lxc-start")
	return dockerErr == nil, lxcErr == nil
}
