package domain

import "slices"

type TeamStats struct {
	Kills   int `json:"kills"`
	Deaths  int `json:"deaths"`
	Assists int `json:"assists"`
	Score   int `json:"score"`
}

type TeamMember struct {
	Member
	Stats TeamStats
	Skill float64
}

type Team struct {
	ID      TeamID
	Name    string
	Color   string
	MaxSize int
	Members []*TeamMember
	Stats   TeamStats
}

func (t *Team) Size() int { return len(t.Members) }

func (t *Team) IsFull() bool { return t.MaxSize > 0 && len(t.Members) >= t.MaxSize }

func (t *Team) Member(c ConnID) (*TeamMember, bool) {
	i := slices.IndexFunc(t.Members, func(m *TeamMember) bool { return m.Conn == c })
	if i < 0 {
		return nil, false
	}
	return t.Members[i], true
}

func (t *Team) RemoveMember(c ConnID) (*TeamMember, bool) {
	i := slices.IndexFunc(t.Members, func(m *TeamMember) bool { return m.Conn == c })
	if i < 0 {
		return nil, false
	}
	m := t.Members[i]
	t.Members = slices.Delete(t.Members, i, i+1)
	return m, true
}

func (t *Team) TotalSkill() float64 {
	var sum float64
	for _, m := range t.Members {
		sum += m.Skill
	}
	return sum
}
