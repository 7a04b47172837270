package lb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindByComment_LocatesTaggedRule(t *testing.T) {
	rules := []string{
		"-A PREROUTING -d 10.10.10.50/32 -j DNAT --to-destination 10.10.10.101",
		`-A PREROUTING -d 10.10.10.60/32 -m comment --comment "wolfrun-lb-10.10.10.60" -j DNAT --to-destination 10.10.10.102`,
	}

	line, found := findByComment(rules, "wolfrun-lb-10.10.10.60")
	assert.True(t, found)
	assert.Equal(t, 2, line)
}

func TestFindByComment_NoMatchReturnsFalse(t *testing.T) {
	rules := []string{"-A PREROUTING -d 10.10.10.50/32 -j ACCEPT"}
	_, found := findByComment(rules, "wolfrun-lb-10.10.10.99")
	assert.False(t, found)
}

func TestComment_TagsWithVIP(t *testing.T) {
	assert.Equal(t, "wolfrun-lb-10.10.10.60", comment("10.10.10.60"))
}
