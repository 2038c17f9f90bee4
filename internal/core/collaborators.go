package core

import "github.com/dkeye/Lobby/internal/domain"

//go:generate mockgen -source=collaborators.go -destination=mocks/mock_collaborators.go -package=mocks

// SceneLoader loads and unloads a room's gameplay content.
// onComplete must be called from the orchestration loop.
type SceneLoader interface {
	LoadRoomContent(room *domain.Room, onComplete func(error))
	UnloadRoomContent(room *domain.Room)
}

// RoleProvider answers permission questions by role ordinal.
type RoleProvider interface {
	PlayerRole(conn domain.ConnID) domain.Role
}

// AccessValidator vets room and party actions. A denial carries a
// human-readable reason.
type AccessValidator interface {
	CanCreateRoom(conn domain.ConnID, name domain.RoomName) (bool, string)
	CanJoinRoom(conn domain.ConnID, room *domain.Room) (bool, string)
	CanCreateParty(conn domain.ConnID) (bool, string)
	CanInviteToParty(party *domain.Party, inviter, target domain.ConnID) (bool, string)
	CanKickFromParty(party *domain.Party, kicker, target domain.ConnID) (bool, string)
}

// RateLimiter gates a connection's actions; Allow records the attempt.
type RateLimiter interface {
	Allow(conn domain.ConnID) bool
}

// NopSceneLoader completes immediately and has no content.
type NopSceneLoader struct{}

func (NopSceneLoader) LoadRoomContent(_ *domain.Room, onComplete func(error)) {
	if onComplete != nil {
		onComplete(nil)
	}
}

func (NopSceneLoader) UnloadRoomContent(*domain.Room) {}

// AllowAll is an AccessValidator that never denies.
type AllowAll struct{}

func (AllowAll) CanCreateRoom(domain.ConnID, domain.RoomName) (bool, string) { return true, "" }
func (AllowAll) CanJoinRoom(domain.ConnID, *domain.Room) (bool, string)      { return true, "" }
func (AllowAll) CanCreateParty(domain.ConnID) (bool, string)                 { return true, "" }

func (AllowAll) CanInviteToParty(*domain.Party, domain.ConnID, domain.ConnID) (bool, string) {
	return true, ""
}

func (AllowAll) CanKickFromParty(*domain.Party, domain.ConnID, domain.ConnID) (bool, string) {
	return true, ""
}
