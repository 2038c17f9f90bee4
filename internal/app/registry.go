package app

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Conn   core.Connection
	Cancel context.CancelFunc
}

// Registry indexes live connections and their user profiles by ConnID.
// Transport goroutines read it concurrently with the orchestration loop.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
	users map[domain.ConnID]*domain.User
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.ConnID]*connEntry),
		users: make(map[domain.ConnID]*domain.User),
	}
}

func (r *Registry) GetOrCreateUser(id domain.ConnID) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return *u
	}
	u := domain.NewUser(id)
	r.users[id] = u
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("created new user")
	return *u
}

func (r *Registry) User(id domain.ConnID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

func (r *Registry) UpdateUsername(id domain.ConnID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUnknownConn
	}
	if err := u.SetUsername(name); err != nil {
		return err
	}
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Str("username", u.Username).Msg("updated username")
	return nil
}

// Bind registers conn under its id and returns the connection it replaced,
// if a previous one with the same id is still bound.
func (r *Registry) Bind(conn core.Connection, cancel context.CancelFunc) (core.Connection, context.CancelFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := conn.ID()
	prev, replaced := r.conns[id]
	r.conns[id] = &connEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Bool("replaced", replaced).Msg("bound connection")
	if !replaced {
		return nil, nil, false
	}
	return prev.Conn, prev.Cancel, true
}

func (r *Registry) Get(id domain.ConnID) (core.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Unbind removes conn when it is still the bound connection for its id.
// A stale connection replaced by a reconnect is ignored.
func (r *Registry) Unbind(conn core.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := conn.ID()
	e, ok := r.conns[id]
	if !ok || e.Conn != conn {
		return false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("unbind connection")
	return true
}

// Connections lists bound ids in sorted order.
func (r *Registry) Connections() []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.conns))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Cancel stops the transport of id, which in turn reports a disconnect.
// It returns false when id is unbound or was bound without a cancel func.
func (r *Registry) Cancel(id domain.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok || e.Cancel == nil {
		return false
	}
	e.Cancel()
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("canceled connection")
	return true
}
