// Package roles assigns permission levels to connections, either server-wide
// or inside one room.
package roles

import (
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// Manager maps connections to roles. A parent provider, when set, supplies
// a floor: a server admin stays admin inside every room.
type Manager struct {
	roles    map[domain.ConnID]domain.Role
	fallback domain.Role
	parent   core.RoleProvider
}

func NewManager(fallback domain.Role, parent core.RoleProvider) *Manager {
	return &Manager{
		roles:    make(map[domain.ConnID]domain.Role),
		fallback: fallback,
		parent:   parent,
	}
}

func (m *Manager) PlayerRole(conn domain.ConnID) domain.Role {
	r, ok := m.roles[conn]
	if !ok {
		r = m.fallback
	}
	if m.parent != nil {
		if p := m.parent.PlayerRole(conn); p > r {
			return p
		}
	}
	return r
}

func (m *Manager) SetRole(conn domain.ConnID, r domain.Role) {
	m.roles[conn] = r
}

func (m *Manager) Remove(conn domain.ConnID) {
	delete(m.roles, conn)
}

func (m *Manager) Clear() {
	clear(m.roles)
}

// Has reports whether conn holds at least min.
func (m *Manager) Has(conn domain.ConnID, min domain.Role) bool {
	return m.PlayerRole(conn).AtLeast(min)
}
