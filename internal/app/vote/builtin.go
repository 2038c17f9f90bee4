package vote

import (
	"fmt"
	"slices"

	"github.com/dkeye/Lobby/internal/domain"
)

const (
	TypeKickPlayer = "kick_player"
	TypeChangeMap  = "change_map"
	TypeEndMatch   = "end_match"
	TypeSurrender  = "surrender"
)

const optionYes = 0

func yesNo(rules Settings) Settings {
	rules.PassOption = optionYes
	return rules
}

// Builtins returns the stock vote types, derived from the room defaults.
func Builtins(defaults Settings, mapPool []string) []Type {
	return []Type{
		NewKickPlayer(defaults),
		NewChangeMap(defaults, mapPool),
		NewEndMatch(defaults),
		NewSurrender(defaults),
	}
}

// KickPlayer removes data["target"] from the room. The target cannot vote.
type KickPlayer struct{ BaseType }

func NewKickPlayer(defaults Settings) *KickPlayer {
	return &KickPlayer{BaseType{TypeID: TypeKickPlayer, Name: "Kick player", Rules: yesNo(defaults)}}
}

func (k *KickPlayer) Question(_ *Env, _ domain.ConnID, data map[string]string) string {
	return fmt.Sprintf("Kick %s?", data["target"])
}

func (k *KickPlayer) CanInitiate(env *Env, initiator domain.ConnID, data map[string]string) (bool, string) {
	if ok, reason := k.BaseType.CanInitiate(env, initiator, data); !ok {
		return ok, reason
	}
	target := domain.ConnID(data["target"])
	switch {
	case target == "":
		return false, "no target"
	case target == initiator:
		return false, "cannot kick yourself"
	case !env.Room.HasMember(target):
		return false, "target is not in the room"
	case env.role(target).AtLeast(domain.RoleAdmin):
		return false, "target cannot be kicked"
	}
	return true, ""
}

func (k *KickPlayer) CanVote(env *Env, v *domain.ActiveVote, voter domain.ConnID) bool {
	return k.BaseType.CanVote(env, v, voter) && string(voter) != v.CustomData["target"]
}

func (k *KickPlayer) ApplyResult(env *Env, v *domain.ActiveVote, _ domain.VoteResult) {
	if env.Actions != nil {
		env.Actions.KickPlayer(domain.ConnID(v.CustomData["target"]), "kicked by vote")
	}
}

// ChangeMap picks the next map from the pool; every pool entry is an option.
type ChangeMap struct {
	BaseType
	Pool []string
}

func NewChangeMap(defaults Settings, pool []string) *ChangeMap {
	return &ChangeMap{BaseType: BaseType{TypeID: TypeChangeMap, Name: "Change map", Rules: defaults}, Pool: pool}
}

func (c *ChangeMap) Question(*Env, domain.ConnID, map[string]string) string {
	return "Which map next?"
}

// Options uses the pool, minus the current map when data names it.
func (c *ChangeMap) Options(_ *Env, _ domain.ConnID, data map[string]string) []string {
	current := data["current"]
	return slices.DeleteFunc(slices.Clone(c.Pool), func(m string) bool { return m == current })
}

func (c *ChangeMap) ApplyResult(env *Env, v *domain.ActiveVote, r domain.VoteResult) {
	if env.Actions != nil && r.WinningOption >= 0 {
		env.Actions.ChangeMap(v.Options[r.WinningOption])
	}
}

// EndMatch ends the running match early.
type EndMatch struct{ BaseType }

func NewEndMatch(defaults Settings) *EndMatch {
	return &EndMatch{BaseType{TypeID: TypeEndMatch, Name: "End the match", Rules: yesNo(defaults)}}
}

func (e *EndMatch) CanInitiate(env *Env, initiator domain.ConnID, data map[string]string) (bool, string) {
	if ok, reason := e.BaseType.CanInitiate(env, initiator, data); !ok {
		return ok, reason
	}
	if !env.state().InMatch() {
		return false, "no match in progress"
	}
	return true, ""
}

func (e *EndMatch) ApplyResult(env *Env, _ *domain.ActiveVote, _ domain.VoteResult) {
	if env.Actions != nil {
		env.Actions.EndMatch("ended by vote")
	}
}

// Surrender is decided by the initiator's team only.
type Surrender struct{ BaseType }

func NewSurrender(defaults Settings) *Surrender {
	return &Surrender{BaseType{TypeID: TypeSurrender, Name: "Surrender", Rules: yesNo(defaults)}}
}

func (s *Surrender) CanInitiate(env *Env, initiator domain.ConnID, data map[string]string) (bool, string) {
	if ok, reason := s.BaseType.CanInitiate(env, initiator, data); !ok {
		return ok, reason
	}
	if env.Teams == nil || len(env.Teams.Teammates(initiator)) == 0 {
		return false, "not on a team"
	}
	if !env.state().InMatch() {
		return false, "no match in progress"
	}
	return true, ""
}

func (s *Surrender) CanVote(env *Env, v *domain.ActiveVote, voter domain.ConnID) bool {
	if !s.BaseType.CanVote(env, v, voter) || env.Teams == nil {
		return false
	}
	return slices.Contains(env.Teams.Teammates(v.Initiator), voter)
}

func (s *Surrender) ApplyResult(env *Env, v *domain.ActiveVote, _ domain.VoteResult) {
	if env.Actions != nil {
		env.Actions.Surrender(v.Initiator)
	}
}
