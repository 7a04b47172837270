package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateSecret_GeneratesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.key")

	cs, err := LoadOrGenerateSecret(path)
	require.NoError(t, err)
	assert.Len(t, cs.bytes, SecretLength)

	reloaded, err := LoadOrGenerateSecret(path)
	require.NoError(t, err)
	assert.Equal(t, cs.bytes, reloaded.bytes)
}

func TestClusterSecret_EqualIsConstantTimeAndCorrect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.key")
	cs, err := LoadOrGenerateSecret(path)
	require.NoError(t, err)

	assert.True(t, cs.Equal(cs.String()))
	assert.False(t, cs.Equal("not-the-secret"))
}

func TestClusterSecret_RotateChangesValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.key")
	cs, err := LoadOrGenerateSecret(path)
	require.NoError(t, err)
	before := cs.String()

	require.NoError(t, cs.Rotate())
	assert.NotEqual(t, before, cs.String())

	reloaded, err := LoadOrGenerateSecret(path)
	require.NoError(t, err)
	assert.Equal(t, cs.String(), reloaded.String())
}
