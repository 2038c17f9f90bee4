package vote

import (
	"time"

	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

// Room is the view of the owning room a vote needs.
type Room interface {
	ID() domain.RoomID
	Members() []domain.ConnID
	HasMember(domain.ConnID) bool
}

// TeamLookup answers team membership for team-scoped votes.
type TeamLookup interface {
	Teammates(conn domain.ConnID) []domain.ConnID
}

// Actions are the room side effects a passed vote may apply.
type Actions interface {
	KickPlayer(target domain.ConnID, reason string)
	ChangeMap(name string)
	EndMatch(reason string)
	Surrender(by domain.ConnID)
}

// Env is what vote types may consult. Roles, Teams, State and Actions may
// be nil.
type Env struct {
	Room    Room
	Roles   core.RoleProvider
	Teams   TeamLookup
	State   func() domain.RoomState
	Actions Actions
}

func (e *Env) role(conn domain.ConnID) domain.Role {
	if e.Roles == nil {
		return domain.RolePlayer
	}
	return e.Roles.PlayerRole(conn)
}

func (e *Env) state() domain.RoomState {
	if e.State == nil {
		return domain.StatePlaying
	}
	return e.State()
}

// Settings are the timing and resolution rules of a vote type.
type Settings struct {
	Duration             time.Duration
	MinParticipationRate float64
	WinningThreshold     float64
	TieResolution        domain.TieResolution
	AllowVoteChange      bool
	AllowSpectatorVote   bool
	Cooldown             time.Duration
	// PassOption, when >= 0, is the only option that can pass the vote
	// (the "Yes" of a yes/no question).
	PassOption int
	// EndOn lists room states that force-end an active vote of this type.
	EndOn []domain.RoomState
}

// SettingsFromConfig builds the room-wide defaults.
func SettingsFromConfig(cfg config.VoteConfig) Settings {
	tie, _ := domain.ParseTieResolution(cfg.TieResolution)
	return Settings{
		Duration:             cfg.DefaultDuration,
		MinParticipationRate: cfg.MinParticipation,
		WinningThreshold:     cfg.WinningThreshold,
		TieResolution:        tie,
		Cooldown:             cfg.DefaultCooldown,
		PassOption:           domain.NoWinner,
		EndOn:                []domain.RoomState{domain.StateLobby, domain.StateEnded},
	}
}

// Type is one kind of vote. New kinds implement Type; the manager never
// switches on a type id.
type Type interface {
	ID() string
	DisplayName() string
	Settings() Settings
	Question(env *Env, initiator domain.ConnID, data map[string]string) string
	Options(env *Env, initiator domain.ConnID, data map[string]string) []string
	CanInitiate(env *Env, initiator domain.ConnID, data map[string]string) (bool, string)
	CanVote(env *Env, v *domain.ActiveVote, voter domain.ConnID) bool
	OnVoteStarted(env *Env, v *domain.ActiveVote)
	OnVoteEnded(env *Env, v *domain.ActiveVote, r domain.VoteResult)
	ApplyResult(env *Env, v *domain.ActiveVote, r domain.VoteResult)
}

// BaseType implements the defaults: a yes/no question any room player may
// start and answer.
type BaseType struct {
	TypeID string
	Name   string
	Rules  Settings
}

func (b *BaseType) ID() string          { return b.TypeID }
func (b *BaseType) DisplayName() string { return b.Name }
func (b *BaseType) Settings() Settings  { return b.Rules }

func (b *BaseType) Question(*Env, domain.ConnID, map[string]string) string {
	return b.Name + "?"
}

func (b *BaseType) Options(*Env, domain.ConnID, map[string]string) []string {
	return []string{"Yes", "No"}
}

func (b *BaseType) CanInitiate(env *Env, initiator domain.ConnID, _ map[string]string) (bool, string) {
	if !env.Room.HasMember(initiator) {
		return false, "not in the room"
	}
	if !env.role(initiator).AtLeast(domain.RolePlayer) {
		return false, "spectators cannot start votes"
	}
	return true, ""
}

func (b *BaseType) CanVote(env *Env, _ *domain.ActiveVote, voter domain.ConnID) bool {
	if !env.Room.HasMember(voter) {
		return false
	}
	if !b.Rules.AllowSpectatorVote && env.role(voter) == domain.RoleSpectator {
		return false
	}
	return true
}

func (b *BaseType) OnVoteStarted(*Env, *domain.ActiveVote)                  {}
func (b *BaseType) OnVoteEnded(*Env, *domain.ActiveVote, domain.VoteResult) {}
func (b *BaseType) ApplyResult(*Env, *domain.ActiveVote, domain.VoteResult) {}
