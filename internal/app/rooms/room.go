package rooms

import (
	"maps"
	"slices"
	"time"

	"github.com/dkeye/Lobby/internal/app/roles"
	"github.com/dkeye/Lobby/internal/app/team"
	"github.com/dkeye/Lobby/internal/app/vote"
	"github.com/dkeye/Lobby/internal/domain"
)

// Room is one live session container. Teams, Votes and Roles are attached
// by the owner of the registry and may be nil.
type Room struct {
	meta         *domain.Room
	members      []domain.ConnID
	reservations map[domain.ConnID]time.Duration

	State *StateMachine
	Teams *team.Manager
	Votes *vote.Manager
	Roles *roles.Manager
}

func newRoom(meta *domain.Room, state *StateMachine) *Room {
	return &Room{
		meta:         meta,
		reservations: make(map[domain.ConnID]time.Duration),
		State:        state,
	}
}

func (r *Room) ID() domain.RoomID              { return r.meta.ID }
func (r *Room) Name() domain.RoomName          { return r.meta.Name }
func (r *Room) Meta() *domain.Room             { return r.meta }
func (r *Room) Owner() domain.ConnID           { return r.meta.Owner }
func (r *Room) ServerOwned() bool              { return r.meta.ServerOwned }
func (r *Room) Size() int                      { return len(r.members) }
func (r *Room) Reserved() int                  { return len(r.reservations) }
func (r *Room) Members() []domain.ConnID       { return slices.Clone(r.members) }
func (r *Room) HasMember(c domain.ConnID) bool { return slices.Contains(r.members, c) }

func (r *Room) HasReservation(c domain.ConnID) bool {
	_, ok := r.reservations[c]
	return ok
}

// occupied counts members and reservations, excluding conn's own
// reservation.
func (r *Room) occupied(conn domain.ConnID) int {
	n := len(r.members) + len(r.reservations)
	if r.HasReservation(conn) {
		n--
	}
	return n
}

func (r *Room) empty() bool {
	return len(r.members) == 0 && len(r.reservations) == 0
}

func (r *Room) Info() domain.RoomInfo {
	return domain.RoomInfo{
		ID:             r.meta.ID,
		Name:           r.meta.Name,
		CurrentPlayers: len(r.members),
		ReservedSlots:  len(r.reservations),
		MaxPlayers:     r.meta.MaxPlayers,
		IsPrivate:      r.meta.IsPrivate,
		State:          r.State.State().String(),
		CustomData:     maps.Clone(r.meta.CustomData),
	}
}

func (r *Room) addMember(c domain.ConnID) {
	delete(r.reservations, c)
	r.members = append(r.members, c)
	r.State.PlayerCountChanged(len(r.members))
}

// removeMember detaches c from the sub-managers, then from membership.
// It returns the new owner when ownership moved.
func (r *Room) removeMember(c domain.ConnID) (newOwner domain.ConnID, moved bool) {
	if r.Votes != nil {
		r.Votes.HandlePlayerLeft(c)
	}
	if r.Teams != nil {
		r.Teams.RemovePlayer(c)
	}
	if r.Roles != nil {
		r.Roles.Remove(c)
	}
	r.members = slices.DeleteFunc(r.members, func(m domain.ConnID) bool { return m == c })
	r.State.PlayerCountChanged(len(r.members))
	if r.meta.Owner == c && len(r.members) > 0 {
		r.meta.Owner = r.members[0]
		return r.meta.Owner, true
	}
	return "", false
}

// expireReservations advances reservation timers and reports whether any
// lapsed.
func (r *Room) expireReservations(dt time.Duration) bool {
	lapsed := false
	for c, left := range r.reservations {
		if left -= dt; left <= 0 {
			delete(r.reservations, c)
			lapsed = true
		} else {
			r.reservations[c] = left
		}
	}
	return lapsed
}

// teardown stops every sub-manager in dependency order.
func (r *Room) teardown() {
	if r.Votes != nil {
		r.Votes.Shutdown()
	}
	if r.Teams != nil {
		r.Teams.Clear()
	}
	if r.Roles != nil {
		r.Roles.Clear()
	}
	r.State.OnChange.Clear()
	r.members = nil
	clear(r.reservations)
}
