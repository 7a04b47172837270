package sysmetrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSample_PopulatesHostname(t *testing.T) {
	snap := Sample(context.Background())
	assert.NotEmpty(t, snap.Hostname)
}

func TestSample_CPUCountPositive(t *testing.T) {
	snap := Sample(context.Background())
	assert.Greater(t, snap.CPUCount, 0)
}
