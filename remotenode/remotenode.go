package remotenode

import (
	"errors"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	defaultBlacklistPeriod = time.Minute * 10
	blacklistCapacity      = 256
)

var ErrNoNodes = errors.New("no remote nodes configured")

// Config contains remote nodes configuration.
type Config struct {
	Nodes           []string      `yaml:"nodes"`            // node urls, the first one is selected at start
	BlacklistPeriod time.Duration `yaml:"blacklist_period"` // how long a failing node is skipped
}

// Manager selects the remote node requests are sent to.
// A node that failed is blacklisted for the BlacklistPeriod.
type Manager struct {
	mu        sync.Mutex
	nodes     []string
	current   int
	blacklist *lru.Cache
	period    time.Duration
	now       func() time.Time
}

// New creates a new Manager.
func New(cfg Config) (*Manager, error) {
	nodes := make([]string, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		if n = strings.TrimRight(strings.TrimSpace(n), "/"); n != "" {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}
	period := cfg.BlacklistPeriod
	if period <= 0 {
		period = defaultBlacklistPeriod
	}
	cache, _ := lru.New(blacklistCapacity) // Never errors for positive size.
	return &Manager{nodes: nodes, blacklist: cache, period: period, now: time.Now}, nil
}

// Current returns url of the selected node.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodes[m.current]
}

// Nodes returns all configured node urls.
func (m *Manager) Nodes() []string {
	return append([]string(nil), m.nodes...)
}

// Blacklist skips the node until the blacklist period passes.
func (m *Manager) Blacklist(url string) {
	m.blacklist.Add(strings.TrimRight(url, "/"), m.now().Add(m.period))
}

// IsBlacklisted tells if the node is blacklisted now.
func (m *Manager) IsBlacklisted(url string) bool {
	url = strings.TrimRight(url, "/")
	v, ok := m.blacklist.Get(url)
	if !ok {
		return false
	}
	if m.now().After(v.(time.Time)) {
		m.blacklist.Remove(url)
		return false
	}
	return true
}

// Reset blacklists the selected node and selects the next one that is not blacklisted.
// When every node is blacklisted the next node in order is selected anyway.
func (m *Manager) Reset() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Blacklist(m.nodes[m.current])
	for i := 1; i <= len(m.nodes); i++ {
		next := (m.current + i) % len(m.nodes)
		if !m.IsBlacklisted(m.nodes[next]) {
			m.current = next
			return m.nodes[next]
		}
	}
	m.current = (m.current + 1) % len(m.nodes)
	return m.nodes[m.current]
}
