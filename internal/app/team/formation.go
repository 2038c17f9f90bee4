package team

import (
	"fmt"

	"github.com/dkeye/Lobby/internal/domain"
)

// TeamContext carries what a strategy may consider besides the team list.
type TeamContext struct {
	PreferredTeam domain.TeamID
	// PartyMates are the joining player's party members already in the room.
	PartyMates []domain.ConnID
	Skill      float64
}

// FormationStrategy picks a team for a joining connection, or nil when no
// team is eligible.
type FormationStrategy interface {
	Name() string
	SelectTeam(teams []*domain.Team, conn domain.ConnID, tc *TeamContext) *domain.Team
}

const (
	ModeManual  = "manual"
	ModeAuto    = "auto"
	ModeCaptain = "captain"
	ModeSkill   = "skill"
)

// NewStrategy resolves a configured formation mode once.
func NewStrategy(mode string, partyBias bool) (FormationStrategy, error) {
	switch mode {
	case ModeManual:
		return ManualSelection{}, nil
	case ModeAuto:
		return &RoundRobin{PartyBias: partyBias}, nil
	case ModeCaptain:
		return CaptainPick{}, nil
	case ModeSkill:
		return SkillBased{PartyBias: partyBias}, nil
	default:
		return nil, fmt.Errorf("unknown formation mode %q", mode)
	}
}

// ManualSelection honours the player's choice and nothing else.
type ManualSelection struct{}

func (ManualSelection) Name() string { return ModeManual }

func (ManualSelection) SelectTeam(teams []*domain.Team, _ domain.ConnID, tc *TeamContext) *domain.Team {
	if tc == nil || tc.PreferredTeam == 0 {
		return nil
	}
	for _, t := range teams {
		if t.ID == tc.PreferredTeam && !t.IsFull() {
			return t
		}
	}
	return nil
}

// RoundRobin cycles through teams, skipping full ones.
type RoundRobin struct {
	PartyBias bool
	next      int
}

func (*RoundRobin) Name() string { return ModeAuto }

func (s *RoundRobin) SelectTeam(teams []*domain.Team, _ domain.ConnID, tc *TeamContext) *domain.Team {
	if len(teams) == 0 {
		return nil
	}
	if s.PartyBias {
		if t := partyTeam(teams, tc); t != nil {
			return t
		}
	}
	for i := range teams {
		idx := (s.next + i) % len(teams)
		if !teams[idx].IsFull() {
			s.next = (idx + 1) % len(teams)
			return teams[idx]
		}
	}
	return nil
}

// CaptainPick seats the first arrival of each team as its captain; everyone
// after that waits to be picked.
type CaptainPick struct{}

func (CaptainPick) Name() string { return ModeCaptain }

func (CaptainPick) SelectTeam(teams []*domain.Team, _ domain.ConnID, _ *TeamContext) *domain.Team {
	for _, t := range teams {
		if t.Size() == 0 {
			return t
		}
	}
	return nil
}

// SkillBased adds the player to the eligible team with the lowest total
// skill. The rating itself comes from the caller.
type SkillBased struct {
	PartyBias bool
}

func (SkillBased) Name() string { return ModeSkill }

func (s SkillBased) SelectTeam(teams []*domain.Team, _ domain.ConnID, tc *TeamContext) *domain.Team {
	if s.PartyBias {
		if t := partyTeam(teams, tc); t != nil {
			return t
		}
	}
	var best *domain.Team
	for _, t := range teams {
		if t.IsFull() {
			continue
		}
		if best == nil ||
			t.TotalSkill() < best.TotalSkill() ||
			(t.TotalSkill() == best.TotalSkill() && t.Size() < best.Size()) {
			best = t
		}
	}
	return best
}

// partyTeam returns a non-full team already holding a party mate.
func partyTeam(teams []*domain.Team, tc *TeamContext) *domain.Team {
	if tc == nil {
		return nil
	}
	for _, mate := range tc.PartyMates {
		for _, t := range teams {
			if _, ok := t.Member(mate); ok && !t.IsFull() {
				return t
			}
		}
	}
	return nil
}
