package remotenode

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	return c.t
}

func newManager(t *testing.T, nodes ...string) (*Manager, *clock) {
	m, err := New(Config{Nodes: nodes, BlacklistPeriod: time.Minute})
	assert.NilError(t, err)
	c := &clock{t: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	m.now = c.now
	return m, c
}

func TestNewWithoutNodes(t *testing.T) {
	_, err := New(Config{Nodes: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrNoNodes)
}

func TestResetSelectsNextHealthyNode(t *testing.T) {
	m, _ := newManager(t, "http://a/", "http://b", "http://c")
	assert.Equal(t, m.Current(), "http://a")

	m.Blacklist("http://b")
	assert.Equal(t, m.Reset(), "http://c")
	assert.Assert(t, m.IsBlacklisted("http://a"))
	assert.Assert(t, m.IsBlacklisted("http://b/"))
	assert.Assert(t, !m.IsBlacklisted("http://c"))
}

func TestBlacklistExpires(t *testing.T) {
	m, c := newManager(t, "http://a", "http://b")

	m.Blacklist("http://a")
	assert.Assert(t, m.IsBlacklisted("http://a"))

	c.t = c.t.Add(time.Minute + time.Second)
	assert.Assert(t, !m.IsBlacklisted("http://a"))
}

func TestResetWhenAllBlacklisted(t *testing.T) {
	m, _ := newManager(t, "http://a", "http://b")

	assert.Equal(t, m.Reset(), "http://b")
	assert.Equal(t, m.Reset(), "http://a")
	assert.Equal(t, m.Current(), "http://a")
}
