// Package party groups connections before and across rooms. A connection
// is in at most one party; a party always has a leader among its members.
package party

import (
	"cmp"
	"fmt"
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

// Leave reasons.
const (
	ReasonLeft         = "left"
	ReasonDisconnected = "disconnected"
	ReasonKicked       = "kicked"
	ReasonTransferred  = "transferred"
)

type MemberEvent struct {
	Party *domain.Party
	Conn  domain.ConnID
}

type LeaveEvent struct {
	Party  *domain.Party
	Conn   domain.ConnID
	Reason string
}

type LeaderEvent struct {
	Party     *domain.Party
	OldLeader domain.ConnID
	NewLeader domain.ConnID
	Reason    string
}

// PendingInvite is an invite addressed to a connection.
type PendingInvite struct {
	Party domain.PartyID
	domain.Invite
}

type Manager struct {
	cfg       config.PartyConfig
	ids       *core.IDGen
	notify    core.Notifier
	validator core.AccessValidator
	logger    zerolog.Logger

	parties    map[domain.PartyID]*domain.Party
	byConn     map[domain.ConnID]domain.PartyID
	clock      time.Duration
	sinceSweep time.Duration

	Created       core.Listeners[*domain.Party]
	Joined        core.Listeners[MemberEvent]
	Left          core.Listeners[LeaveEvent]
	LeaderChanged core.Listeners[LeaderEvent]
	Disbanded     core.Listeners[*domain.Party]
}

// NewManager builds an empty manager. validator may be nil.
func NewManager(cfg config.PartyConfig, ids *core.IDGen, notify core.Notifier, validator core.AccessValidator) *Manager {
	if validator == nil {
		validator = core.AllowAll{}
	}
	return &Manager{
		cfg:       cfg,
		ids:       ids,
		notify:    notify,
		validator: validator,
		logger:    log.With().Str("module", "app.party").Logger(),
		parties:   make(map[domain.PartyID]*domain.Party),
		byConn:    make(map[domain.ConnID]domain.PartyID),
	}
}

func (m *Manager) Get(id domain.PartyID) (*domain.Party, bool) {
	p, ok := m.parties[id]
	return p, ok
}

func (m *Manager) PartyOf(conn domain.ConnID) (*domain.Party, bool) {
	id, ok := m.byConn[conn]
	if !ok {
		return nil, false
	}
	return m.parties[id], true
}

// Mates returns the other members of conn's party.
func (m *Manager) Mates(conn domain.ConnID) []domain.ConnID {
	p, ok := m.PartyOf(conn)
	if !ok {
		return nil
	}
	return slices.DeleteFunc(p.MemberIDs(), func(c domain.ConnID) bool { return c == conn })
}

func (m *Manager) Count() int { return len(m.parties) }

// Public lists public parties ordered by id.
func (m *Manager) Public() []*domain.Party {
	var out []*domain.Party
	for _, p := range m.parties {
		if p.Settings.IsPublic {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Party) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Now is the manager's clock, advanced by Update.
func (m *Manager) Now() time.Duration { return m.clock }

func (m *Manager) CreateParty(leader domain.ConnID, maxSize int, name string) (*domain.Party, error) {
	if _, in := m.byConn[leader]; in {
		return nil, domain.ErrAlreadyInParty
	}
	name = strings.TrimSpace(name)
	switch {
	case len(name) > m.cfg.MaxNameLength:
		return nil, domain.Denied(domain.ErrInvalidParty, "name is too long")
	case maxSize < 0:
		return nil, domain.Denied(domain.ErrInvalidParty, "max size is negative")
	}
	if ok, reason := m.validator.CanCreateParty(leader); !ok {
		return nil, domain.Denied(domain.ErrValidatorDenied, reason)
	}
	if maxSize == 0 {
		maxSize = m.cfg.DefaultMaxSize
	}
	maxSize = min(maxSize, m.cfg.MaxSize)

	p := &domain.Party{
		ID:      domain.PartyID(m.ids.Next()),
		Name:    name,
		MaxSize: maxSize,
		Leader:  leader,
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("Party %d", p.ID)
	}
	p.AddMember(leader, m.clock)
	m.parties[p.ID] = p
	m.byConn[leader] = p.ID

	m.logger.Info().Stringer("party", p.ID).Str("leader", string(leader)).Int("max", maxSize).Msg("party created")
	m.Created.Emit(p)
	m.sync(p)
	return p, nil
}

func (m *Manager) timeout(p *domain.Party) time.Duration {
	if p.InviteTimeout > 0 {
		return p.InviteTimeout
	}
	return m.cfg.InviteTimeout
}

// InvitePlayer checks every precondition, then either records an invite or,
// with auto-accept, adds target right away.
func (m *Manager) InvitePlayer(id domain.PartyID, inviter, target domain.ConnID) error {
	p, ok := m.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	if !p.HasMember(inviter) {
		return domain.ErrNotInParty
	}
	if !p.IsLeader(inviter) && !p.Settings.AllowMemberInvites {
		return domain.ErrNotPartyLeader
	}
	if _, in := m.byConn[target]; in {
		return domain.ErrAlreadyInParty
	}
	m.expire(p)
	if _, pending := p.Invite(target); pending {
		return domain.ErrInvitePending
	}
	if p.IsFull() {
		return domain.ErrPartyFull
	}
	if ok, reason := m.validator.CanInviteToParty(p, inviter, target); !ok {
		return domain.Denied(domain.ErrValidatorDenied, reason)
	}

	if p.Settings.AutoAccept {
		m.addMember(p, target)
		return nil
	}
	ttl := m.timeout(p)
	p.PendingInvites = append(p.PendingInvites, domain.Invite{Inviter: inviter, Target: target, ExpiresAt: m.clock + ttl})
	m.logger.Info().Stringer("party", p.ID).Str("inviter", string(inviter)).Str("target", string(target)).Msg("invite sent")
	m.notify.Send(target, protocol.PartyInviteReceived{
		Type:      protocol.TypePartyInviteReceived,
		PartyID:   p.ID,
		PartyName: p.Name,
		Inviter:   inviter,
		ExpiresIn: ttl.Seconds(),
	})
	m.sync(p)
	return nil
}

// AcceptInvite re-validates expiry and capacity at accept time.
func (m *Manager) AcceptInvite(conn domain.ConnID, id domain.PartyID) error {
	p, ok := m.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	inv, ok := p.Invite(conn)
	if !ok {
		return domain.ErrInviteNotFound
	}
	if m.clock >= inv.ExpiresAt {
		p.RemoveInvite(conn)
		m.sync(p)
		return domain.ErrInviteExpired
	}
	if _, in := m.byConn[conn]; in {
		return domain.ErrAlreadyInParty
	}
	if p.IsFull() {
		return domain.ErrPartyFull
	}
	p.RemoveInvite(conn)
	m.addMember(p, conn)
	return nil
}

func (m *Manager) DeclineInvite(conn domain.ConnID, id domain.PartyID) error {
	p, ok := m.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	inv, ok := p.Invite(conn)
	if !ok {
		return domain.ErrInviteNotFound
	}
	p.RemoveInvite(conn)
	if p.HasMember(inv.Inviter) {
		m.notify.Send(inv.Inviter, protocol.PartyInviteDeclined{Type: protocol.TypePartyInviteDeclined, PartyID: p.ID, Target: conn})
	}
	m.sync(p)
	return nil
}

// JoinPublicParty lets conn join a public party without an invite.
func (m *Manager) JoinPublicParty(conn domain.ConnID, id domain.PartyID) error {
	p, ok := m.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	if !p.Settings.IsPublic {
		return domain.ErrPartyNotPublic
	}
	if _, in := m.byConn[conn]; in {
		return domain.ErrAlreadyInParty
	}
	if p.IsFull() {
		return domain.ErrPartyFull
	}
	p.RemoveInvite(conn)
	m.addMember(p, conn)
	return nil
}

func (m *Manager) addMember(p *domain.Party, conn domain.ConnID) {
	p.AddMember(conn, m.clock)
	m.byConn[conn] = p.ID
	// Invites elsewhere are moot once conn has a party.
	for _, other := range m.parties {
		if other != p && other.RemoveInvite(conn) {
			m.sync(other)
		}
	}
	m.logger.Info().Stringer("party", p.ID).Str("sid", string(conn)).Int("size", p.Size()).Msg("joined party")
	m.Joined.Emit(MemberEvent{Party: p, Conn: conn})
	m.sync(p)
}

func (m *Manager) LeaveParty(conn domain.ConnID) error {
	p, ok := m.PartyOf(conn)
	if !ok {
		return domain.ErrNotInParty
	}
	m.notify.Send(conn, protocol.PartyRemoved{Type: protocol.TypePartyLeft, PartyID: p.ID})
	m.removeMember(p, conn, ReasonLeft)
	return nil
}

// HandleDisconnect removes conn from its party and drops invites addressed
// to it. It never fails.
func (m *Manager) HandleDisconnect(conn domain.ConnID) {
	for _, p := range m.parties {
		if p.RemoveInvite(conn) {
			m.sync(p)
		}
	}
	if p, ok := m.PartyOf(conn); ok {
		m.removeMember(p, conn, ReasonDisconnected)
	}
}

func (m *Manager) KickMember(id domain.PartyID, kicker, target domain.ConnID) error {
	p, ok := m.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	if !p.IsLeader(kicker) {
		return domain.ErrNotPartyLeader
	}
	if kicker == target {
		return domain.Denied(domain.ErrNoPermission, "cannot kick yourself")
	}
	if !p.HasMember(target) {
		return domain.ErrTargetNotMember
	}
	if ok, reason := m.validator.CanKickFromParty(p, kicker, target); !ok {
		return domain.Denied(domain.ErrValidatorDenied, reason)
	}
	m.notify.Send(target, protocol.PartyRemoved{Type: protocol.TypePartyKicked, PartyID: p.ID, By: kicker})
	m.removeMember(p, target, ReasonKicked)
	return nil
}

// successor is the earliest-joined member other than leaving; ties keep
// join order.
func successor(p *domain.Party, leaving domain.ConnID) (domain.ConnID, bool) {
	var best *domain.Member
	for i := range p.Members {
		mem := &p.Members[i]
		if mem.Conn == leaving {
			continue
		}
		if best == nil || mem.JoinedAt < best.JoinedAt {
			best = mem
		}
	}
	if best == nil {
		return "", false
	}
	return best.Conn, true
}

func (m *Manager) removeMember(p *domain.Party, conn domain.ConnID, reason string) {
	wasLeader := p.IsLeader(conn)
	next, hasNext := successor(p, conn)

	p.PendingInvites = slices.DeleteFunc(p.PendingInvites, func(inv domain.Invite) bool { return inv.Inviter == conn })
	p.RemoveMember(conn)
	delete(m.byConn, conn)
	m.logger.Info().Stringer("party", p.ID).Str("sid", string(conn)).Str("reason", reason).Msg("left party")
	m.Left.Emit(LeaveEvent{Party: p, Conn: conn, Reason: reason})

	switch {
	case !hasNext:
		m.disband(p)
		return
	case wasLeader && !m.cfg.AutoTransferLeadership:
		m.disband(p)
		return
	case wasLeader:
		m.setLeader(p, next, "leader_"+reason)
	}
	m.sync(p)
}

func (m *Manager) setLeader(p *domain.Party, to domain.ConnID, reason string) {
	old := p.Leader
	p.Leader = to
	m.logger.Info().Stringer("party", p.ID).Str("from", string(old)).Str("to", string(to)).Str("reason", reason).Msg("party leader changed")
	m.notify.Broadcast(p.MemberIDs(), protocol.PartyLeaderChanged{
		Type:      protocol.TypePartyLeaderChanged,
		PartyID:   p.ID,
		OldLeader: old,
		NewLeader: to,
		Reason:    reason,
	})
	m.LeaderChanged.Emit(LeaderEvent{Party: p, OldLeader: old, NewLeader: to, Reason: reason})
}

// TransferLeadership hands the party to another member.
func (m *Manager) TransferLeadership(id domain.PartyID, by, to domain.ConnID) error {
	p, ok := m.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	if !p.IsLeader(by) {
		return domain.ErrNotPartyLeader
	}
	if !p.HasMember(to) {
		return domain.ErrTargetNotMember
	}
	if by == to {
		return nil
	}
	m.setLeader(p, to, ReasonTransferred)
	m.sync(p)
	return nil
}

func (m *Manager) UpdateSettings(id domain.PartyID, by domain.ConnID, s domain.PartySettings) error {
	p, ok := m.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	if !p.IsLeader(by) {
		return domain.ErrNotPartyLeader
	}
	p.Settings = s
	m.sync(p)
	return nil
}

// Disband dissolves a party on the leader's request.
func (m *Manager) Disband(id domain.PartyID, by domain.ConnID) error {
	p, ok := m.parties[id]
	if !ok {
		return domain.ErrPartyNotFound
	}
	if !p.IsLeader(by) {
		return domain.ErrNotPartyLeader
	}
	m.disband(p)
	return nil
}

func (m *Manager) disband(p *domain.Party) {
	for _, c := range p.MemberIDs() {
		delete(m.byConn, c)
	}
	m.notify.Broadcast(p.MemberIDs(), protocol.PartyRemoved{Type: protocol.TypePartyDisbanded, PartyID: p.ID})
	delete(m.parties, p.ID)
	m.ids.Release(uint32(p.ID))
	m.logger.Info().Stringer("party", p.ID).Msg("party disbanded")
	m.Disbanded.Emit(p)
}

// PendingInvitesFor lists unexpired invites addressed to conn.
func (m *Manager) PendingInvitesFor(conn domain.ConnID) []PendingInvite {
	var out []PendingInvite
	for _, id := range slices.Sorted(maps.Keys(m.parties)) {
		p := m.parties[id]
		m.expire(p)
		if inv, ok := p.Invite(conn); ok {
			out = append(out, PendingInvite{Party: id, Invite: inv})
		}
	}
	return out
}

// expire drops lapsed invites of p and returns how many it dropped.
func (m *Manager) expire(p *domain.Party) int {
	n := len(p.PendingInvites)
	p.PendingInvites = slices.DeleteFunc(p.PendingInvites, func(inv domain.Invite) bool {
		return m.clock >= inv.ExpiresAt
	})
	return n - len(p.PendingInvites)
}

// CleanupExpiredInvites sweeps every party and returns the number of
// invites removed.
func (m *Manager) CleanupExpiredInvites() int {
	total := 0
	for _, p := range m.parties {
		if n := m.expire(p); n > 0 {
			total += n
			m.sync(p)
		}
	}
	if total > 0 {
		m.logger.Debug().Int("removed", total).Msg("expired invites swept")
	}
	return total
}

// Update advances the clock and sweeps invites every sweep interval.
func (m *Manager) Update(dt time.Duration) {
	m.clock += dt
	m.sinceSweep += dt
	if m.sinceSweep >= m.cfg.InviteSweepInterval {
		m.sinceSweep = 0
		m.CleanupExpiredInvites()
	}
}

func (m *Manager) sync(p *domain.Party) {
	msg := protocol.PartySync{
		Type:     protocol.TypePartySync,
		PartyID:  p.ID,
		Name:     p.Name,
		MaxSize:  p.MaxSize,
		Leader:   p.Leader,
		Members:  make([]protocol.PartyMember, 0, len(p.Members)),
		Invited:  make([]domain.ConnID, 0, len(p.PendingInvites)),
		Settings: p.Settings,
	}
	for _, mem := range p.Members {
		msg.Members = append(msg.Members, protocol.PartyMember{Conn: mem.Conn, IsLeader: mem.Conn == p.Leader})
	}
	for _, inv := range p.PendingInvites {
		msg.Invited = append(msg.Invited, inv.Target)
	}
	m.notify.Broadcast(p.MemberIDs(), msg)
}
