package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfstacksystems/wolfstack/pkg/types"
)

func TestSaveAndLoadNodeSnapshot(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	nodes := []types.Node{
		{ID: "a", Hostname: "box-a"},
		{ID: "b", Hostname: "box-b"},
	}
	require.NoError(t, c.SaveNodeSnapshot(nodes))

	loaded, err := c.LoadNodeSnapshot()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestSaveNodeSnapshot_ReplacesPriorContents(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SaveNodeSnapshot([]types.Node{{ID: "a"}, {ID: "b"}}))
	require.NoError(t, c.SaveNodeSnapshot([]types.Node{{ID: "c"}}))

	loaded, err := c.LoadNodeSnapshot()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c", loaded[0].ID)
}

func TestAppendReconcileRecord_TrimsOldestPastLimit(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < maxReconcileLogEntries+10; i++ {
		require.NoError(t, c.AppendReconcileRecord(ReconcileRecord{Timestamp: int64(i), ServiceCount: 1}))
	}

	history, err := c.ReconcileHistory()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(history), maxReconcileLogEntries)
}
