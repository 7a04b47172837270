package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

// Timeouts for the different classes of inter-node call described by the
// concurrency model: status polls are cheap and frequent, reconciler ops
// touch a container runtime and may block on it, image pulls move bytes.
const (
	StatusTimeout      = 5 * time.Second
	ReconcileOpTimeout = 15 * time.Second
	TransferTimeout    = 600 * time.Second
)

// Client issues authenticated HTTP calls to a peer node's API.
type Client struct {
	httpClient *http.Client
	secret     string
}

// New returns a Client that attaches secret as X-Cluster-Secret on every
// request. The caller controls the timeout per call via context.
func New(secret string) *Client {
	return &Client{httpClient: &http.Client{}, secret: secret}
}

func baseURL(node types.Node) string {
	return fmt.Sprintf("http://%s:%d", node.Address, node.Port)
}

func (c *Client) do(ctx context.Context, method, url string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Cluster-Secret", c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Status requests node's self-reported StatusReport (C5's poll).
func (c *Client) Status(ctx context.Context, node types.Node) (types.StatusReport, error) {
	var report types.StatusReport
	err := c.do(ctx, http.MethodGet, baseURL(node)+"/agent/status", nil, &report)
	return report, err
}

// ListContainers enumerates containers of the given runtime on node.
func (c *Client) ListContainers(ctx context.Context, node types.Node, runtime types.Runtime, all bool) ([]types.ContainerInfo, error) {
	url := fmt.Sprintf("%s/containers/%s", baseURL(node), runtime)
	if all {
		url += "?all=true"
	}
	var containers []types.ContainerInfo
	err := c.do(ctx, http.MethodGet, url, nil, &containers)
	return containers, err
}

// ContainerAction issues start/stop/restart/remove/destroy on a named
// container on node; the peer rejects any other action with 400.
func (c *Client) ContainerAction(ctx context.Context, node types.Node, runtime types.Runtime, name, action string) error {
	url := fmt.Sprintf("%s/containers/%s/%s/action", baseURL(node), runtime, name)
	return c.do(ctx, http.MethodPost, url, map[string]string{"action": action}, nil)
}

// CreateContainerRequest is the body accepted by the create endpoints.
type CreateContainerRequest struct {
	Name      string            `json:"name"`
	Image     string            `json:"image,omitempty"`
	Ports     []string          `json:"ports,omitempty"`
	Env       []string          `json:"env,omitempty"`
	Volumes   []string          `json:"volumes,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	WolfnetIP string            `json:"wolfnet_ip,omitempty"`
	Lxc       *types.LxcConfig  `json:"lxc_config,omitempty"`
}

// CreateContainer creates a container of the given runtime on node.
func (c *Client) CreateContainer(ctx context.Context, node types.Node, runtime types.Runtime, req CreateContainerRequest) error {
	url := fmt.Sprintf("%s/containers/%s/create", baseURL(node), runtime)
	return c.do(ctx, http.MethodPost, url, req, nil)
}

// PullImage pulls a Docker image on node.
func (c *Client) PullImage(ctx context.Context, node types.Node, image string) error {
	url := baseURL(node) + "/containers/docker/pull"
	return c.do(ctx, http.MethodPost, url, map[string]string{"image": image}, nil)
}

// CloneContainer clones an LXC container named template into newName on node.
func (c *Client) CloneContainer(ctx context.Context, node types.Node, template, newName string) error {
	url := fmt.Sprintf("%s/containers/lxc/%s/clone", baseURL(node), template)
	return c.do(ctx, http.MethodPost, url, map[string]string{"new_name": newName}, nil)
}
