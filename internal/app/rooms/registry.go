// Package rooms owns the set of live rooms and their membership. A
// connection is in at most one room at a time.
package rooms

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

// CreateRequest describes a new room. A nil Requester creates a
// server-owned room; otherwise the requester owns it and is expected to
// join it next.
type CreateRequest struct {
	Name        domain.RoomName
	MaxPlayers  int
	IsPrivate   bool
	AccessToken string
	CustomData  map[string]string
	Requester   *domain.ConnID
}

// Target names a room by id or, when ID is zero, by name.
type Target struct {
	ID   domain.RoomID
	Name domain.RoomName
}

type MemberEvent struct {
	Room *Room
	Conn domain.ConnID
}

type ExitEvent struct {
	Room       *Room
	Conn       domain.ConnID
	Disconnect bool
	// Removed is set when the exit emptied and removed the room.
	Removed bool
}

type StateEvent struct {
	Room   *Room
	Change StateChange
}

type Registry struct {
	cfg       config.RoomConfig
	ids       *core.IDGen
	validator core.AccessValidator
	scenes    core.SceneLoader
	now       func() time.Time
	logger    zerolog.Logger

	rooms  map[domain.RoomID]*Room
	byName map[domain.RoomName]domain.RoomID
	byConn map[domain.ConnID]domain.RoomID

	Created      core.Listeners[*Room]
	Joined       core.Listeners[MemberEvent]
	Exited       core.Listeners[ExitEvent]
	Evicted      core.Listeners[MemberEvent]
	Removed      core.Listeners[*Room]
	OwnerChanged core.Listeners[MemberEvent]
	StateChanged core.Listeners[StateEvent]
	ListChanged  core.Listeners[protocol.RoomListDelta]
}

// NewRegistry builds an empty registry. validator and scenes may be nil.
func NewRegistry(cfg config.RoomConfig, ids *core.IDGen, validator core.AccessValidator, scenes core.SceneLoader) *Registry {
	if validator == nil {
		validator = core.AllowAll{}
	}
	if scenes == nil {
		scenes = core.NopSceneLoader{}
	}
	return &Registry{
		cfg:       cfg,
		ids:       ids,
		validator: validator,
		scenes:    scenes,
		now:       time.Now,
		logger:    log.With().Str("module", "app.rooms").Logger(),
		rooms:     make(map[domain.RoomID]*Room),
		byName:    make(map[domain.RoomName]domain.RoomID),
		byConn:    make(map[domain.ConnID]domain.RoomID),
	}
}

func (g *Registry) Get(id domain.RoomID) (*Room, bool) {
	r, ok := g.rooms[id]
	return r, ok
}

func (g *Registry) ByName(name domain.RoomName) (*Room, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.rooms[id], true
}

func (g *Registry) RoomOf(conn domain.ConnID) (*Room, bool) {
	id, ok := g.byConn[conn]
	if !ok {
		return nil, false
	}
	return g.rooms[id], true
}

func (g *Registry) Count() int { return len(g.rooms) }

// Rooms returns every room ordered by id.
func (g *Registry) Rooms() []*Room {
	out := slices.Collect(maps.Values(g.rooms))
	slices.SortFunc(out, func(a, b *Room) int { return cmp.Compare(a.ID(), b.ID()) })
	return out
}

// List returns listing snapshots ordered by id.
func (g *Registry) List(includePrivate bool) []domain.RoomInfo {
	out := make([]domain.RoomInfo, 0, len(g.rooms))
	for _, r := range g.Rooms() {
		if r.meta.IsPrivate && !includePrivate {
			continue
		}
		out = append(out, r.Info())
	}
	return out
}

func (g *Registry) CreateRoom(req CreateRequest) (*Room, error) {
	name := domain.RoomName(strings.TrimSpace(string(req.Name)))
	switch {
	case name == "":
		return nil, domain.Denied(domain.ErrInvalidRoom, "name is empty")
	case len(name) > g.cfg.MaxNameLength:
		return nil, domain.Denied(domain.ErrInvalidRoom, "name is too long")
	case req.MaxPlayers < 0:
		return nil, domain.Denied(domain.ErrInvalidRoom, "max players is negative")
	case req.IsPrivate && req.AccessToken == "":
		return nil, domain.Denied(domain.ErrInvalidRoom, "private room needs an access token")
	}
	if _, taken := g.byName[name]; taken {
		return nil, domain.ErrDuplicateRoomName
	}
	if len(g.rooms) >= g.cfg.MaxRooms {
		return nil, domain.ErrRoomLimit
	}
	if req.Requester != nil {
		if _, in := g.byConn[*req.Requester]; in {
			return nil, domain.ErrAlreadyInRoom
		}
		if ok, reason := g.validator.CanCreateRoom(*req.Requester, name); !ok {
			return nil, domain.Denied(domain.ErrValidatorDenied, reason)
		}
	}

	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = g.cfg.DefaultMaxPlayers
	}
	maxPlayers = min(maxPlayers, g.cfg.MaxPlayers)

	meta := &domain.Room{
		ID:          domain.RoomID(g.ids.Next()),
		Name:        name,
		MaxPlayers:  maxPlayers,
		IsPrivate:   req.IsPrivate,
		AccessToken: req.AccessToken,
		CustomData:  maps.Clone(req.CustomData),
		ServerOwned: req.Requester == nil,
		CreatedAt:   g.now(),
	}
	if req.Requester != nil {
		meta.Owner = *req.Requester
	}
	room := newRoom(meta, NewStateMachine(g.cfg))
	room.State.OnChange.Add(func(c StateChange) { g.onStateChange(room, c) })

	g.rooms[meta.ID] = room
	g.byName[name] = meta.ID
	g.logger.Info().Stringer("room", meta.ID).Str("name", string(name)).Int("max", maxPlayers).Bool("server", meta.ServerOwned).Msg("room created")

	g.scenes.LoadRoomContent(meta, func(err error) {
		if err != nil {
			g.logger.Error().Err(err).Stringer("room", meta.ID).Msg("room content failed to load")
		}
	})
	g.Created.Emit(room)
	g.emitList(protocol.ListAdd, room)
	return room, nil
}

func (g *Registry) resolve(t Target) (*Room, bool) {
	if t.ID != 0 {
		return g.Get(t.ID)
	}
	return g.ByName(t.Name)
}

// JoinRoom runs every check before touching membership.
func (g *Registry) JoinRoom(conn domain.ConnID, target Target, accessToken string) (*Room, error) {
	room, ok := g.resolve(target)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if _, in := g.byConn[conn]; in {
		return nil, domain.ErrAlreadyInRoom
	}
	if room.meta.IsPrivate && accessToken != room.meta.AccessToken {
		return nil, domain.ErrAccessDenied
	}
	if ok, reason := g.validator.CanJoinRoom(conn, room.meta); !ok {
		return nil, domain.Denied(domain.ErrValidatorDenied, reason)
	}
	// A held reconnect slot is honoured mid-match.
	if !room.HasReservation(conn) {
		if ok, reason := room.State.CanPlayerJoinState(); !ok {
			return nil, domain.Denied(domain.ErrStateDenied, reason)
		}
	}
	if room.occupied(conn) >= room.meta.MaxPlayers {
		return nil, domain.ErrRoomFull
	}
	room.addMember(conn)
	g.byConn[conn] = room.ID()
	g.logger.Info().Str("sid", string(conn)).Stringer("room", room.ID()).Int("players", room.Size()).Msg("joined room")
	g.Joined.Emit(MemberEvent{Room: room, Conn: conn})
	g.emitList(protocol.ListUpdate, room)
	return room, nil
}

// ExitRoom removes conn from its room. A disconnect holds the slot for
// the reconnect grace period when one is configured.
func (g *Registry) ExitRoom(conn domain.ConnID, isDisconnect bool) error {
	room, ok := g.RoomOf(conn)
	if !ok {
		return domain.ErrNotInRoom
	}
	delete(g.byConn, conn)
	owner, moved := room.removeMember(conn)
	if isDisconnect && g.cfg.ReconnectGrace > 0 {
		room.reservations[conn] = g.cfg.ReconnectGrace
	}
	g.logger.Info().Str("sid", string(conn)).Stringer("room", room.ID()).Bool("disconnect", isDisconnect).Msg("left room")

	if moved {
		g.logger.Info().Str("sid", string(owner)).Stringer("room", room.ID()).Msg("room ownership transferred")
		g.OwnerChanged.Emit(MemberEvent{Room: room, Conn: owner})
	}
	removed := room.empty() && !room.meta.ServerOwned
	g.Exited.Emit(ExitEvent{Room: room, Conn: conn, Disconnect: isDisconnect, Removed: removed})
	if removed {
		g.remove(room)
		return nil
	}
	g.recycle(room)
	g.emitList(protocol.ListUpdate, room)
	return nil
}

// recycle returns an abandoned server room to the lobby so it can host
// the next match.
func (g *Registry) recycle(room *Room) {
	if !room.meta.ServerOwned || !room.empty() || room.State.State() == domain.StateLobby {
		return
	}
	_ = room.State.Reset()
	g.logger.Info().Stringer("room", room.ID()).Msg("server room back to lobby")
}

// RemoveRoom evicts every member. Server-owned rooms survive unless forced.
func (g *Registry) RemoveRoom(id domain.RoomID, forced bool) error {
	room, ok := g.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	for _, c := range room.Members() {
		delete(g.byConn, c)
		room.removeMember(c)
		g.Evicted.Emit(MemberEvent{Room: room, Conn: c})
	}
	clear(room.reservations)

	if room.meta.ServerOwned && !forced {
		if room.State.State() != domain.StateLobby {
			_ = room.State.Reset()
		}
		g.logger.Info().Stringer("room", id).Msg("server room cleared")
		g.emitList(protocol.ListUpdate, room)
		return nil
	}
	g.remove(room)
	return nil
}

func (g *Registry) remove(room *Room) {
	id := room.ID()
	room.teardown()
	g.scenes.UnloadRoomContent(room.meta)
	delete(g.rooms, id)
	delete(g.byName, room.meta.Name)
	g.ids.Release(uint32(id))
	g.logger.Info().Stringer("room", id).Str("name", string(room.meta.Name)).Msg("room removed")
	g.Removed.Emit(room)
	g.emitList(protocol.ListRemove, room)
}

// SetCustomData updates one listing attribute of a room.
func (g *Registry) SetCustomData(id domain.RoomID, key, value string) error {
	room, ok := g.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if room.meta.CustomData == nil {
		room.meta.CustomData = make(map[string]string)
	}
	room.meta.CustomData[key] = value
	g.emitList(protocol.ListUpdate, room)
	return nil
}

// Reserve holds a slot in a room for conn, for ttl of loop time.
func (g *Registry) Reserve(id domain.RoomID, conn domain.ConnID, ttl time.Duration) error {
	room, ok := g.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if _, in := g.byConn[conn]; in {
		return domain.ErrAlreadyInRoom
	}
	if room.occupied(conn) >= room.meta.MaxPlayers {
		return domain.ErrRoomFull
	}
	room.reservations[conn] = ttl
	g.emitList(protocol.ListUpdate, room)
	return nil
}

func (g *Registry) CancelReservation(id domain.RoomID, conn domain.ConnID) {
	room, ok := g.rooms[id]
	if !ok || !room.HasReservation(conn) {
		return
	}
	delete(room.reservations, conn)
	if room.empty() && !room.meta.ServerOwned {
		g.remove(room)
		return
	}
	g.recycle(room)
	g.emitList(protocol.ListUpdate, room)
}

// Update advances reservations and room state machines. Rooms left empty
// by lapsed reservations and rooms whose linger expired are removed.
func (g *Registry) Update(dt time.Duration) {
	var drop []*Room
	for _, room := range g.Rooms() {
		if room.expireReservations(dt) {
			if room.empty() && !room.meta.ServerOwned {
				drop = append(drop, room)
				continue
			}
			g.recycle(room)
			g.emitList(protocol.ListUpdate, room)
		}
		room.State.Update(dt)
		if room.State.Expired() {
			drop = append(drop, room)
		}
	}
	for _, room := range drop {
		// Expired server rooms are cleared and kept.
		if err := g.RemoveRoom(room.ID(), !room.meta.ServerOwned); err != nil {
			g.logger.Warn().Err(err).Stringer("room", room.ID()).Msg("room removal failed")
		}
	}
}

// Shutdown removes every room.
func (g *Registry) Shutdown() {
	for _, room := range g.Rooms() {
		_ = g.RemoveRoom(room.ID(), true)
	}
}

func (g *Registry) onStateChange(room *Room, c StateChange) {
	g.logger.Info().Stringer("room", room.ID()).Stringer("from", c.From).Stringer("to", c.To).Msg("room state changed")
	if room.Votes != nil {
		room.Votes.OnRoomStateChanged(c.To)
	}
	g.StateChanged.Emit(StateEvent{Room: room, Change: c})
	g.emitList(protocol.ListUpdate, room)
}

func (g *Registry) emitList(op string, room *Room) {
	g.ListChanged.Emit(protocol.RoomListDelta{Type: protocol.TypeRoomListDelta, Op: op, Room: room.Info()})
}
