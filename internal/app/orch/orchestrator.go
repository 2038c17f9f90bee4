// Package orch is the single authoritative owner of lobby state. Every
// mutation runs on the loop started by Run; transports hand work in with
// Submit or Do.
package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/party"
	"github.com/dkeye/Lobby/internal/app/roles"
	"github.com/dkeye/Lobby/internal/app/rooms"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

var ErrStopped = errors.New("orchestrator stopped")

const queueSize = 256

// Deps are the optional collaborators. Nil fields get permissive defaults.
type Deps struct {
	Validator core.AccessValidator
	Scenes    core.SceneLoader
	Chat      core.RateLimiter
}

type Orchestrator struct {
	cfg    *config.Config
	notify core.Notifier
	chat   core.RateLimiter
	logger zerolog.Logger

	teamIDs *core.IDGen
	voteIDs *core.IDGen

	Conns   *app.Registry
	Rooms   *rooms.Registry
	Parties *party.Manager
	// Roles are server-wide; every room's roles fall back to them.
	Roles *roles.Manager

	cmds chan func()
	done chan struct{}
}

// forgetter is implemented by collaborators that keep per-connection state.
type forgetter interface {
	Forget(domain.ConnID)
}

func New(cfg *config.Config, conns *app.Registry, notify core.Notifier, deps Deps) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:     cfg,
		notify:  notify,
		chat:    deps.Chat,
		logger:  log.With().Str("module", "app.orch").Logger(),
		teamIDs: core.NewIDGen(),
		voteIDs: core.NewIDGen(),
		Conns:   conns,
		Roles:   roles.NewManager(domain.RolePlayer, nil),
		cmds:    make(chan func(), queueSize),
		done:    make(chan struct{}),
	}
	o.Rooms = rooms.NewRegistry(cfg.Rooms, core.NewIDGen(), deps.Validator, deps.Scenes)
	o.Parties = party.NewManager(cfg.Party, core.NewIDGen(), notify, deps.Validator)
	o.wireRooms()

	for _, sr := range cfg.Rooms.ServerRooms {
		if _, err := o.Rooms.CreateRoom(rooms.CreateRequest{Name: domain.RoomName(sr.Name), MaxPlayers: sr.MaxPlayers}); err != nil {
			return nil, fmt.Errorf("server room %q: %w", sr.Name, err)
		}
	}
	return o, nil
}

// Run drives the loop until ctx is done, then shuts every room down.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.TickRate)
	defer ticker.Stop()
	defer close(o.done)

	last := time.Now()
	o.logger.Info().Dur("tick", o.cfg.TickRate).Int("rooms", o.Rooms.Count()).Msg("loop started")
	for {
		select {
		case <-ctx.Done():
			o.drain()
			o.Shutdown()
			o.logger.Info().Msg("loop stopped")
			return nil
		case fn := <-o.cmds:
			o.exec(fn)
		case now := <-ticker.C:
			o.exec(func() { o.Update(now.Sub(last)) })
			last = now
		}
	}
}

func (o *Orchestrator) drain() {
	for {
		select {
		case fn := <-o.cmds:
			o.exec(fn)
		default:
			return
		}
	}
}

func (o *Orchestrator) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Msg("command panicked")
		}
	}()
	fn()
}

// Submit queues fn for the loop. It reports false once the loop has stopped.
func (o *Orchestrator) Submit(fn func()) bool {
	select {
	case <-o.done:
		return false
	default:
	}
	select {
	case o.cmds <- fn:
		return true
	case <-o.done:
		return false
	}
}

// Do runs fn on the loop and waits for it.
func (o *Orchestrator) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !o.Submit(func() { defer close(finished); fn() }) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
}

// Update advances every timer by dt.
func (o *Orchestrator) Update(dt time.Duration) {
	for _, room := range o.Rooms.Rooms() {
		if room.Votes != nil {
			room.Votes.Update(dt)
		}
		if room.Teams != nil {
			room.Teams.Update(dt)
		}
	}
	o.Rooms.Update(dt)
	o.Parties.Update(dt)
}

func (o *Orchestrator) Shutdown() {
	o.Rooms.Shutdown()
}

// Connect binds a new transport. A previous connection under the same id
// is cancelled; the user keeps room, party and team membership. A held
// room slot is claimed and pending invites are re-sent.
func (o *Orchestrator) Connect(conn core.Connection, cancel context.CancelFunc) {
	id := conn.ID()
	prev, prevCancel, replaced := o.Conns.Bind(conn, cancel)
	if replaced {
		if prevCancel != nil {
			prevCancel()
		} else {
			prev.Close()
		}
	}
	o.Conns.GetOrCreateUser(id)

	for _, room := range o.Rooms.Rooms() {
		if !room.HasReservation(id) {
			continue
		}
		if err := o.joinRoom(id, rooms.Target{ID: room.ID()}, room.Meta().AccessToken); err != nil {
			o.logger.Warn().Err(err).Str("sid", string(id)).Stringer("room", room.ID()).Msg("reclaiming held slot failed")
			o.Rooms.CancelReservation(room.ID(), id)
		}
		break
	}
	for _, inv := range o.Parties.PendingInvitesFor(id) {
		p, _ := o.Parties.Get(inv.Party)
		o.notify.Send(id, protocol.PartyInviteReceived{
			Type:      protocol.TypePartyInviteReceived,
			PartyID:   inv.Party,
			PartyName: p.Name,
			Inviter:   inv.Inviter,
			ExpiresIn: (inv.ExpiresAt - o.Parties.Now()).Seconds(),
		})
	}
	o.logger.Info().Str("sid", string(id)).Bool("replaced", replaced).Msg("connected")
}

// HandleDisconnect cleans up after a transport closed. Cleanup runs vote,
// team, party, then room, and never fails. A connection already replaced
// by a reconnect is ignored.
func (o *Orchestrator) HandleDisconnect(conn core.Connection) {
	id := conn.ID()
	if !o.Conns.Unbind(conn) {
		return
	}
	if room, ok := o.Rooms.RoomOf(id); ok {
		if room.Votes != nil {
			room.Votes.HandlePlayerLeft(id)
		}
		if room.Teams != nil {
			room.Teams.RemovePlayer(id)
		}
	}
	o.Parties.HandleDisconnect(id)
	if _, ok := o.Rooms.RoomOf(id); ok {
		if err := o.Rooms.ExitRoom(id, true); err != nil {
			o.logger.Warn().Err(err).Str("sid", string(id)).Msg("room exit on disconnect failed")
		}
	}
	o.Roles.Remove(id)
	if f, ok := o.notify.(forgetter); ok {
		f.Forget(id)
	}
	if f, ok := o.chat.(forgetter); ok {
		f.Forget(id)
	}
	o.logger.Info().Str("sid", string(id)).Msg("disconnected")
}

// Fail sends the negative acknowledgement for a failed request.
func (o *Orchestrator) Fail(conn domain.ConnID, request string, err error) {
	o.logger.Debug().Err(err).Str("sid", string(conn)).Str("request", request).Msg("request failed")
	o.notify.Send(conn, protocol.FailFor(protocol.FailTypeOf(request), request, err))
}

func (o *Orchestrator) Ping(conn domain.ConnID) {
	o.notify.Send(conn, protocol.Pong{Type: protocol.TypePong})
}

func (o *Orchestrator) Rename(conn domain.ConnID, name string) error {
	if err := o.Conns.UpdateUsername(conn, name); err != nil {
		if domain.KindOf(err) != domain.KindUnknown {
			return err
		}
		return domain.Denied(domain.ErrBadRequest, err.Error())
	}
	o.WhoAmI(conn)
	return nil
}

func (o *Orchestrator) WhoAmI(conn domain.ConnID) {
	u, _ := o.Conns.User(conn)
	msg := protocol.WhoAmI{Type: protocol.TypeWhoAmI, ID: conn, Username: u.Username}
	if room, ok := o.Rooms.RoomOf(conn); ok {
		msg.RoomID = room.ID()
		if room.Teams != nil {
			if t, ok := room.Teams.TeamOf(conn); ok {
				msg.TeamID = t.ID
			}
		}
	}
	if p, ok := o.Parties.PartyOf(conn); ok {
		msg.PartyID = p.ID
	}
	o.notify.Send(conn, msg)
}
