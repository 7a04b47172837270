package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

type fakeStatusClient struct {
	reports map[string]types.StatusReport
	errs    map[string]error
}

func (f *fakeStatusClient) Status(_ context.Context, node types.Node) (types.StatusReport, error) {
	if err, ok := f.errs[node.ID]; ok {
		return types.StatusReport{}, err
	}
	return f.reports[node.ID], nil
}

func TestPollOnce_UpdatesReachablePeers(t *testing.T) {
	r := NewRegistry()
	r.AddManual(types.Node{ID: "b", Address: "10.10.10.101", Port: 9090})

	fc := &fakeStatusClient{reports: map[string]types.StatusReport{
		"b": {NodeID: "b", Hostname: "box-b", HasDocker: true},
	}}

	p := NewPoller(r, fc)
	p.pollOnce()

	n, ok := r.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "box-b", n.Hostname)
	assert.True(t, n.HasDocker)
	assert.False(t, n.IsSelf)
}

func TestPollOnce_LeavesRowUntouchedOnFailure(t *testing.T) {
	r := NewRegistry()
	r.AddManual(types.Node{ID: "c", Hostname: "stale-hostname"})

	fc := &fakeStatusClient{errs: map[string]error{"c": errors.New("timeout")}}

	p := NewPoller(r, fc)
	p.pollOnce()

	n, ok := r.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "stale-hostname", n.Hostname)
}

func TestPollOnce_SkipsSelfRow(t *testing.T) {
	r := NewRegistry()
	r.UpdateSelf(types.Node{ID: "self"})

	fc := &fakeStatusClient{}
	p := NewPoller(r, fc)
	p.pollOnce() // must not panic or call Status for self; reports map has no "self" entry
}
