// Package session provides in-memory conversation sessions.
//
// Persistence model:
//   - Only the user/assistant text of completed exchanges is stored; tool
//     blocks are transient within a query.
//   - Sessions expire after a TTL and never survive a process restart.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

type exchange struct {
	User      string
	Assistant string
}

// Manager creates sessions and tracks their recent exchanges.
type Manager struct {
	cache      *gocache.Cache
	maxHistory int
}

// NewManager returns a Manager keeping at most maxHistory exchanges per
// session, expiring idle sessions after ttl.
func NewManager(maxHistory int, ttl time.Duration) *Manager {
	if maxHistory <= 0 {
		maxHistory = 2
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{
		cache:      gocache.New(ttl, 2*ttl),
		maxHistory: maxHistory,
	}
}

// Create starts a new session and returns its id.
func (m *Manager) Create() string {
	id := uuid.NewString()
	m.cache.SetDefault(id, []exchange{})
	return id
}

// AddExchange records one completed question/answer pair, trimming the
// session to the most recent maxHistory exchanges.
func (m *Manager) AddExchange(id, userMsg, assistantMsg string) {
	var exchanges []exchange
	if v, ok := m.cache.Get(id); ok {
		exchanges = v.([]exchange)
	}
	exchanges = append(exchanges, exchange{User: userMsg, Assistant: assistantMsg})
	if len(exchanges) > m.maxHistory {
		exchanges = exchanges[len(exchanges)-m.maxHistory:]
	}
	m.cache.SetDefault(id, exchanges)
}

// History renders the session's exchanges as prompt text, oldest first, or
// "" for an unknown or empty session.
func (m *Manager) History(id string) string {
	if id == "" {
		return ""
	}
	v, ok := m.cache.Get(id)
	if !ok {
		return ""
	}
	exchanges := v.([]exchange)
	lines := make([]string, 0, 2*len(exchanges))
	for _, e := range exchanges {
		lines = append(lines, fmt.Sprintf("User: %s", e.User))
		lines = append(lines, fmt.Sprintf("Assistant: %s", e.Assistant))
	}
	return strings.Join(lines, "\n")
}
