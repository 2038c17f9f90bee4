package orch

import (
	"maps"

	"github.com/dkeye/Lobby/internal/app/roles"
	"github.com/dkeye/Lobby/internal/app/rooms"
	"github.com/dkeye/Lobby/internal/app/team"
	"github.com/dkeye/Lobby/internal/app/vote"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

// mapKey is the room custom data entry holding the current map.
const mapKey = "map"

func (o *Orchestrator) wireRooms() {
	o.Rooms.Created.Add(o.attach)
	o.Rooms.Joined.Add(o.onJoined)
	o.Rooms.Exited.Add(func(e rooms.ExitEvent) {
		if e.Removed {
			return
		}
		u := o.user(e.Conn)
		o.notify.Broadcast(e.Room.Members(), protocol.MemberEvent{Type: protocol.TypeMemberLeft, User: u})
	})
	o.Rooms.Evicted.Add(func(e rooms.MemberEvent) {
		o.notify.Send(e.Conn, protocol.RoomRemoved{Type: protocol.TypeRoomRemoved, RoomID: e.Room.ID()})
	})
	o.Rooms.OwnerChanged.Add(func(e rooms.MemberEvent) {
		if e.Room.Roles != nil {
			e.Room.Roles.SetRole(e.Conn, domain.RoleOwner)
		}
	})
	o.Rooms.StateChanged.Add(func(e rooms.StateEvent) {
		msg := protocol.RoomState{
			Type:   protocol.TypeRoomState,
			RoomID: e.Room.ID(),
			From:   e.Change.From.String(),
			State:  e.Change.To.String(),
		}
		if e.Change.To == domain.StateStarting {
			msg.Countdown = e.Room.State.Countdown().Seconds()
		}
		o.notify.Broadcast(e.Room.Members(), msg)
	})
	o.Rooms.ListChanged.Add(func(d protocol.RoomListDelta) {
		if d.Room.IsPrivate {
			return
		}
		o.notify.Broadcast(o.Conns.Connections(), d)
	})
}

// attach gives a new room its roles, teams and votes.
func (o *Orchestrator) attach(room *rooms.Room) {
	room.Roles = roles.NewManager(domain.RolePlayer, o.Roles)
	if owner := room.Owner(); owner != "" {
		room.Roles.SetRole(owner, domain.RoleOwner)
	}

	env := &vote.Env{
		Room:    room,
		Roles:   room.Roles,
		State:   room.State.State,
		Actions: &roomActions{o: o, room: room},
	}
	if o.cfg.Teams.Enabled {
		tm := team.NewManager(room, o.teamIDs, o.notify)
		if err := tm.Initialize(o.cfg.Teams); err != nil {
			o.logger.Error().Err(err).Stringer("room", room.ID()).Msg("teams not initialized")
		} else {
			room.Teams = tm
			env.Teams = tm
		}
	}
	room.Votes = vote.NewManager(env, o.cfg.Votes, o.voteIDs, o.notify)
	room.Votes.RegisterBuiltins()
}

func (o *Orchestrator) onJoined(e rooms.MemberEvent) {
	u := o.user(e.Conn)
	for _, c := range e.Room.Members() {
		if c != e.Conn {
			o.notify.Send(c, protocol.MemberEvent{Type: protocol.TypeMemberJoined, User: u})
		}
	}
}

// assignTeam places a member who has just been told about the room. Every
// outcome leaves the member with a full team sync.
func (o *Orchestrator) assignTeam(room *rooms.Room, conn domain.ConnID) {
	tc := &team.TeamContext{}
	for _, mate := range o.Parties.Mates(conn) {
		if room.HasMember(mate) {
			tc.PartyMates = append(tc.PartyMates, mate)
		}
	}
	if _, err := room.Teams.AssignPlayerToTeam(conn, tc); err != nil {
		o.logger.Warn().Err(err).Str("sid", string(conn)).Stringer("room", room.ID()).Msg("team assignment failed")
		o.notify.Send(conn, protocol.TeamSync{Type: protocol.TypeTeamSync, Teams: room.Teams.Snapshot()})
	}
}

func (o *Orchestrator) user(conn domain.ConnID) domain.User {
	if u, ok := o.Conns.User(conn); ok {
		return u
	}
	return domain.User{ID: conn}
}

func (o *Orchestrator) CreateRoom(conn domain.ConnID, req protocol.CreateRoomRequest) error {
	room, err := o.Rooms.CreateRoom(rooms.CreateRequest{
		Name:        domain.RoomName(req.Name),
		MaxPlayers:  req.MaxPlayers,
		IsPrivate:   req.IsPrivate,
		AccessToken: req.AccessToken,
		CustomData:  req.CustomData,
		Requester:   &conn,
	})
	if err != nil {
		return err
	}
	o.notify.Send(conn, protocol.RoomCreated{Type: protocol.TypeRoomCreated, Room: room.Info()})
	if err := o.joinRoom(conn, rooms.Target{ID: room.ID()}, req.AccessToken); err != nil {
		_ = o.Rooms.RemoveRoom(room.ID(), true)
		return err
	}
	return nil
}

func (o *Orchestrator) JoinRoom(conn domain.ConnID, req protocol.JoinRoomRequest) error {
	return o.joinRoom(conn, rooms.Target{ID: domain.RoomID(req.RoomID), Name: domain.RoomName(req.Name)}, req.AccessToken)
}

func (o *Orchestrator) joinRoom(conn domain.ConnID, target rooms.Target, token string) error {
	room, err := o.Rooms.JoinRoom(conn, target, token)
	if err != nil {
		return err
	}
	o.notify.Send(conn, protocol.RoomJoined{
		Type:    protocol.TypeRoomJoined,
		Room:    room.Info(),
		Members: room.Members(),
		Owner:   room.Owner(),
	})
	if room.Teams != nil {
		o.assignTeam(room, conn)
	}
	return nil
}

func (o *Orchestrator) ExitRoom(conn domain.ConnID) error {
	room, ok := o.Rooms.RoomOf(conn)
	if !ok {
		return domain.ErrNotInRoom
	}
	id := room.ID()
	if err := o.Rooms.ExitRoom(conn, false); err != nil {
		return err
	}
	o.notify.Send(conn, protocol.RoomExited{Type: protocol.TypeRoomExited, RoomID: id, Reason: "left"})
	return nil
}

func (o *Orchestrator) ListRooms(conn domain.ConnID) {
	o.notify.Send(conn, protocol.RoomList{Type: protocol.TypeRoomList, Rooms: o.Rooms.List(false)})
}

// AdminCreateRoom creates a server-owned room.
func (o *Orchestrator) AdminCreateRoom(req protocol.CreateRoomRequest) (domain.RoomInfo, error) {
	room, err := o.Rooms.CreateRoom(rooms.CreateRequest{
		Name:        domain.RoomName(req.Name),
		MaxPlayers:  req.MaxPlayers,
		IsPrivate:   req.IsPrivate,
		AccessToken: req.AccessToken,
		CustomData:  maps.Clone(req.CustomData),
	})
	if err != nil {
		return domain.RoomInfo{}, err
	}
	return room.Info(), nil
}

// AdminRemoveRoom force-removes a room, server-owned or not.
func (o *Orchestrator) AdminRemoveRoom(id domain.RoomID) error {
	return o.Rooms.RemoveRoom(id, true)
}

func (o *Orchestrator) RoomInfo(id domain.RoomID) (domain.RoomInfo, bool) {
	room, ok := o.Rooms.Get(id)
	if !ok {
		return domain.RoomInfo{}, false
	}
	return room.Info(), true
}

// moderated returns conn's room when conn may run it: the owner, a room
// admin or a server admin.
func (o *Orchestrator) moderated(conn domain.ConnID) (*rooms.Room, error) {
	room, ok := o.Rooms.RoomOf(conn)
	if !ok {
		return nil, domain.ErrNotInRoom
	}
	if !room.Roles.Has(conn, domain.RoleAdmin) {
		return nil, domain.ErrNoPermission
	}
	return room, nil
}

func (o *Orchestrator) StartMatch(conn domain.ConnID) error {
	room, err := o.moderated(conn)
	if err != nil {
		return err
	}
	return room.State.Start()
}

func (o *Orchestrator) PauseMatch(conn domain.ConnID) error {
	room, err := o.moderated(conn)
	if err != nil {
		return err
	}
	return room.State.Pause()
}

func (o *Orchestrator) ResumeMatch(conn domain.ConnID) error {
	room, err := o.moderated(conn)
	if err != nil {
		return err
	}
	return room.State.Resume()
}

func (o *Orchestrator) EndMatch(conn domain.ConnID) error {
	room, err := o.moderated(conn)
	if err != nil {
		return err
	}
	return room.State.End()
}

// roomActions applies passed votes to one room.
type roomActions struct {
	o    *Orchestrator
	room *rooms.Room
}

func (a *roomActions) KickPlayer(target domain.ConnID, reason string) {
	if !a.room.HasMember(target) {
		return
	}
	id := a.room.ID()
	if err := a.o.Rooms.ExitRoom(target, false); err != nil {
		a.o.logger.Warn().Err(err).Str("sid", string(target)).Msg("vote kick failed")
		return
	}
	a.o.notify.Send(target, protocol.RoomExited{Type: protocol.TypeRoomExited, RoomID: id, Reason: reason})
}

func (a *roomActions) ChangeMap(name string) {
	if err := a.o.Rooms.SetCustomData(a.room.ID(), mapKey, name); err != nil {
		a.o.logger.Warn().Err(err).Str("map", name).Msg("map change failed")
	}
}

func (a *roomActions) EndMatch(reason string) {
	if err := a.room.State.End(); err != nil {
		a.o.logger.Warn().Err(err).Str("reason", reason).Stringer("room", a.room.ID()).Msg("end match failed")
	}
}

func (a *roomActions) Surrender(by domain.ConnID) {
	if a.room.Teams != nil {
		if t, ok := a.room.Teams.TeamOf(by); ok {
			a.o.logger.Info().Stringer("room", a.room.ID()).Stringer("team", t.ID).Msg("team surrendered")
		}
	}
	a.EndMatch("surrender")
}
