package quiz

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks live drivers by session ID.
type Manager struct {
	mu      sync.Mutex
	drivers map[string]*Driver
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{drivers: make(map[string]*Driver)}
}

// Add registers d under a fresh ID.
func (m *Manager) Add(d *Driver) string {
	id := NewSessionID()
	m.Put(id, d)
	return id
}

// Put registers d under id. A driver already registered under id is closed.
func (m *Manager) Put(id string, d *Driver) {
	m.mu.Lock()
	old := m.drivers[id]
	m.drivers[id] = d
	m.mu.Unlock()
	if old != nil && old != d {
		old.Close()
	}
}

// NewSessionID returns a fresh random session ID.
func NewSessionID() string {
	return uuid.NewString()
}

// Get returns the driver registered under id.
func (m *Manager) Get(id string) (*Driver, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	return d, ok
}

// Remove unregisters and closes the driver under id.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	d, ok := m.drivers[id]
	delete(m.drivers, id)
	m.mu.Unlock()
	if ok {
		d.Close()
	}
	return ok
}

// Len returns the number of live drivers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drivers)
}

// Sweep closes drivers that have been idle for longer than ttl and returns
// how many were removed.
func (m *Manager) Sweep(now time.Time, ttl time.Duration) int {
	var stale []*Driver
	m.mu.Lock()
	for id, d := range m.drivers {
		if now.Sub(d.LastActive()) > ttl {
			stale = append(stale, d)
			delete(m.drivers, id)
		}
	}
	m.mu.Unlock()

	for _, d := range stale {
		d.Close()
	}
	if len(stale) > 0 {
		slog.Info("swept idle quiz sessions", "count", len(stale))
	}
	return len(stale)
}

// Close closes every driver.
func (m *Manager) Close() {
	m.mu.Lock()
	drivers := m.drivers
	m.drivers = make(map[string]*Driver)
	m.mu.Unlock()

	for _, d := range drivers {
		d.Close()
	}
}
