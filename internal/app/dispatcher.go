package app

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// Dispatcher is the core.Notifier backed by the connection registry. It
// encodes each message once and never blocks on a slow peer.
type Dispatcher struct {
	reg    *Registry
	policy Policy
	logger zerolog.Logger

	mu    sync.Mutex
	drops map[domain.ConnID]int
}

// NewDispatcher builds a dispatcher. A nil policy kicks on the first
// dropped frame.
func NewDispatcher(reg *Registry, policy Policy) *Dispatcher {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Dispatcher{
		reg:    reg,
		policy: policy,
		logger: log.With().Str("module", "app.dispatch").Logger(),
		drops:  make(map[domain.ConnID]int),
	}
}

func (d *Dispatcher) Send(to domain.ConnID, msg any) {
	frame, ok := d.encode(msg)
	if !ok {
		return
	}
	d.deliver(to, frame)
}

func (d *Dispatcher) Broadcast(to []domain.ConnID, msg any) {
	if len(to) == 0 {
		return
	}
	frame, ok := d.encode(msg)
	if !ok {
		return
	}
	for _, id := range to {
		d.deliver(id, frame)
	}
}

// Forget clears the drop counter of a departed connection.
func (d *Dispatcher) Forget(id domain.ConnID) {
	d.mu.Lock()
	delete(d.drops, id)
	d.mu.Unlock()
}

func (d *Dispatcher) encode(msg any) (core.Frame, bool) {
	b, err := json.Marshal(msg)
	if err != nil {
		d.logger.Error().Err(err).Msgf("encode %T", msg)
		return nil, false
	}
	return b, true
}

func (d *Dispatcher) deliver(id domain.ConnID, frame core.Frame) {
	conn, ok := d.reg.Get(id)
	if !ok {
		d.logger.Debug().Str("sid", string(id)).Msg("send to unbound connection")
		return
	}
	err := conn.TrySend(frame)

	d.mu.Lock()
	if err == nil {
		delete(d.drops, id)
		d.mu.Unlock()
		return
	}
	d.drops[id]++
	n := d.drops[id]
	d.mu.Unlock()

	action := d.policy.OnBackPressure(conn, n)
	d.logger.Warn().Err(err).Str("sid", string(id)).Int("drops", n).Stringer("action", action).Msg("send failed")
	if action == KickMember {
		d.Forget(id)
		if !d.reg.Cancel(id) {
			conn.Close()
		}
	}
}
