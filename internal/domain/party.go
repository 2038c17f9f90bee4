package domain

import (
	"slices"
	"time"
)

type PartySettings struct {
	IsPublic           bool `json:"is_public"`
	AutoAccept         bool `json:"auto_accept"`
	VoiceEnabled       bool `json:"voice_enabled"`
	AllowMemberInvites bool `json:"allow_member_invites"`
}

// Invite is a pending party invitation. ExpiresAt is on the party
// manager's clock.
type Invite struct {
	Inviter   ConnID
	Target    ConnID
	ExpiresAt time.Duration
}

type Party struct {
	ID      PartyID
	Name    string
	MaxSize int
	Leader  ConnID
	// Members are kept in join order; the leader is always one of them.
	Members        []Member
	PendingInvites []Invite
	Settings       PartySettings
	// InviteTimeout overrides the manager default when non-zero.
	InviteTimeout time.Duration
}

func (p *Party) Size() int { return len(p.Members) }

func (p *Party) IsFull() bool { return len(p.Members) >= p.MaxSize }

func (p *Party) HasMember(c ConnID) bool {
	return p.memberIndex(c) >= 0
}

func (p *Party) IsLeader(c ConnID) bool { return p.Leader == c }

func (p *Party) MemberIDs() []ConnID {
	out := make([]ConnID, 0, len(p.Members))
	for _, m := range p.Members {
		out = append(out, m.Conn)
	}
	return out
}

func (p *Party) AddMember(c ConnID, at time.Duration) {
	if p.HasMember(c) {
		return
	}
	p.Members = append(p.Members, Member{Conn: c, JoinedAt: at})
}

func (p *Party) RemoveMember(c ConnID) bool {
	i := p.memberIndex(c)
	if i < 0 {
		return false
	}
	p.Members = slices.Delete(p.Members, i, i+1)
	return true
}

// Invite returns the pending invite for target, if any.
func (p *Party) Invite(target ConnID) (Invite, bool) {
	for _, inv := range p.PendingInvites {
		if inv.Target == target {
			return inv, true
		}
	}
	return Invite{}, false
}

func (p *Party) RemoveInvite(target ConnID) bool {
	n := len(p.PendingInvites)
	p.PendingInvites = slices.DeleteFunc(p.PendingInvites, func(inv Invite) bool {
		return inv.Target == target
	})
	return len(p.PendingInvites) != n
}

func (p *Party) memberIndex(c ConnID) int {
	return slices.IndexFunc(p.Members, func(m Member) bool { return m.Conn == c })
}
