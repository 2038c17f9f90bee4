package party

import (
	"errors"
	"slices"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/core/coretest"
	"github.com/dkeye/Lobby/internal/core/mocks"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

func partyConfig() config.PartyConfig {
	return config.PartyConfig{
		DefaultMaxSize:         4,
		MaxSize:                8,
		MaxNameLength:          16,
		InviteTimeout:          time.Minute,
		InviteSweepInterval:    time.Hour,
		AutoTransferLeadership: true,
	}
}

func newTestManager(cfg config.PartyConfig) (*Manager, *coretest.Recorder) {
	rec := &coretest.Recorder{}
	return NewManager(cfg, core.NewSeededIDGen(1), rec, nil), rec
}

func mustCreate(t *testing.T, m *Manager, leader domain.ConnID, size int) *domain.Party {
	t.Helper()
	p, err := m.CreateParty(leader, size, "")
	if err != nil {
		t.Fatalf("CreateParty(%s): %v", leader, err)
	}
	return p
}

func mustAdd(t *testing.T, m *Manager, p *domain.Party, conn domain.ConnID) {
	t.Helper()
	if err := m.InvitePlayer(p.ID, p.Leader, conn); err != nil {
		t.Fatalf("InvitePlayer(%s): %v", conn, err)
	}
	if err := m.AcceptInvite(conn, p.ID); err != nil {
		t.Fatalf("AcceptInvite(%s): %v", conn, err)
	}
}

func TestScenario_LeaderDisconnectTransfers(t *testing.T) {
	m, rec := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 3)
	mustAdd(t, m, p, "b")

	if p.Size() != 2 || p.Leader != "a" {
		t.Fatalf("size = %d leader = %s", p.Size(), p.Leader)
	}

	m.HandleDisconnect("a")

	if p.Size() != 1 || p.Leader != "b" {
		t.Fatalf("after disconnect: size = %d leader = %s", p.Size(), p.Leader)
	}
	if _, in := m.PartyOf("a"); in {
		t.Error("disconnected leader still indexed")
	}
	msg, ok := coretest.Last[protocol.PartyLeaderChanged](rec, "b")
	if !ok || msg.NewLeader != "b" || msg.OldLeader != "a" || msg.Reason != "leader_disconnected" {
		t.Errorf("PartyLeaderChanged = %+v, %v", msg, ok)
	}
	sync, ok := coretest.Last[protocol.PartySync](rec, "b")
	if !ok || sync.Leader != "b" || len(sync.Members) != 1 {
		t.Errorf("PartySync = %+v, %v", sync, ok)
	}
}

func TestLeadership_EarliestJoinWins(t *testing.T) {
	m, _ := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 4)
	m.Update(time.Second)
	mustAdd(t, m, p, "b")
	m.Update(time.Second)
	mustAdd(t, m, p, "c")

	// Slice order is not join order here.
	p.Members[1], p.Members[2] = p.Members[2], p.Members[1]

	if err := m.LeaveParty("a"); err != nil {
		t.Fatalf("LeaveParty: %v", err)
	}
	if p.Leader != "b" {
		t.Errorf("leader = %s, want b (joined second)", p.Leader)
	}
}

func TestLeaderLeaves_DisbandsWithoutAutoTransfer(t *testing.T) {
	cfg := partyConfig()
	cfg.AutoTransferLeadership = false
	m, rec := newTestManager(cfg)
	var disbanded int
	m.Disbanded.Add(func(*domain.Party) { disbanded++ })

	p := mustCreate(t, m, "a", 3)
	mustAdd(t, m, p, "b")
	_ = m.LeaveParty("a")

	if disbanded != 1 || m.Count() != 0 {
		t.Fatalf("disbanded = %d, parties = %d", disbanded, m.Count())
	}
	if _, in := m.PartyOf("b"); in {
		t.Error("member of disbanded party still indexed")
	}
	if msg, ok := coretest.Last[protocol.PartyRemoved](rec, "b"); !ok || msg.Type != protocol.TypePartyDisbanded {
		t.Errorf("b got %+v, %v", msg, ok)
	}
}

func TestLastMemberLeaving_Disbands(t *testing.T) {
	m, _ := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 2)
	_ = m.LeaveParty("a")

	if _, ok := m.Get(p.ID); ok {
		t.Fatal("empty party kept")
	}
	if err := m.LeaveParty("a"); !errors.Is(err, domain.ErrNotInParty) {
		t.Errorf("second leave: err = %v", err)
	}
}

func TestCreateParty_Rejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	v := mocks.NewMockAccessValidator(ctrl)
	v.EXPECT().CanCreateParty(domain.ConnID("muted")).Return(false, "muted players cannot host")
	v.EXPECT().CanCreateParty(domain.ConnID("a")).Return(true, "")

	m := NewManager(partyConfig(), core.NewSeededIDGen(1), &coretest.Recorder{}, v)
	if _, err := m.CreateParty("muted", 2, ""); !errors.Is(err, domain.ErrValidatorDenied) {
		t.Errorf("validator: err = %v", err)
	}
	if _, err := m.CreateParty("a", -1, ""); !errors.Is(err, domain.ErrInvalidParty) {
		t.Errorf("negative size: err = %v", err)
	}
	p, err := m.CreateParty("a", 50, "")
	if err != nil {
		t.Fatalf("CreateParty: %v", err)
	}
	if p.MaxSize != 8 || p.Name == "" {
		t.Errorf("max = %d name = %q", p.MaxSize, p.Name)
	}
	if _, err := m.CreateParty("a", 2, ""); !errors.Is(err, domain.ErrAlreadyInParty) {
		t.Errorf("second party: err = %v", err)
	}
}

func TestInvitePlayer_Rejections(t *testing.T) {
	m, rec := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 2)
	mustCreate(t, m, "z", 2)

	if err := m.InvitePlayer(99, "a", "b"); !errors.Is(err, domain.ErrPartyNotFound) {
		t.Errorf("missing party: err = %v", err)
	}
	if err := m.InvitePlayer(p.ID, "x", "b"); !errors.Is(err, domain.ErrNotInParty) {
		t.Errorf("outsider: err = %v", err)
	}
	if err := m.InvitePlayer(p.ID, "a", "z"); !errors.Is(err, domain.ErrAlreadyInParty) {
		t.Errorf("partied target: err = %v", err)
	}
	if err := m.InvitePlayer(p.ID, "a", "b"); err != nil {
		t.Fatalf("InvitePlayer: %v", err)
	}
	if err := m.InvitePlayer(p.ID, "a", "b"); !errors.Is(err, domain.ErrInvitePending) {
		t.Errorf("duplicate invite: err = %v", err)
	}
	msg, ok := coretest.Last[protocol.PartyInviteReceived](rec, "b")
	if !ok || msg.ExpiresIn != 60 || msg.Inviter != "a" {
		t.Errorf("PartyInviteReceived = %+v, %v", msg, ok)
	}

	_ = m.AcceptInvite("b", p.ID)
	if err := m.InvitePlayer(p.ID, "b", "c"); !errors.Is(err, domain.ErrNotPartyLeader) {
		t.Errorf("member invite: err = %v", err)
	}
	if err := m.InvitePlayer(p.ID, "a", "c"); !errors.Is(err, domain.ErrPartyFull) {
		t.Errorf("full party: err = %v", err)
	}
}

func TestAcceptInvite_CapacityRace(t *testing.T) {
	m, _ := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 2)
	_ = m.InvitePlayer(p.ID, "a", "b")
	_ = m.InvitePlayer(p.ID, "a", "c")

	if err := m.AcceptInvite("b", p.ID); err != nil {
		t.Fatalf("AcceptInvite(b): %v", err)
	}
	if err := m.AcceptInvite("c", p.ID); !errors.Is(err, domain.ErrPartyFull) {
		t.Fatalf("AcceptInvite(c): err = %v, want ErrPartyFull", err)
	}
	if p.Size() != 2 || p.HasMember("c") {
		t.Errorf("members = %v", p.MemberIDs())
	}
}

func TestAcceptInvite_Expired(t *testing.T) {
	m, _ := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 3)
	_ = m.InvitePlayer(p.ID, "a", "b")

	m.Update(time.Minute)
	if err := m.AcceptInvite("b", p.ID); !errors.Is(err, domain.ErrInviteExpired) {
		t.Fatalf("err = %v, want ErrInviteExpired", err)
	}
	if err := m.AcceptInvite("b", p.ID); !errors.Is(err, domain.ErrInviteNotFound) {
		t.Errorf("second accept: err = %v", err)
	}
}

func TestAcceptInvite_DropsOtherInvites(t *testing.T) {
	m, _ := newTestManager(partyConfig())
	p1 := mustCreate(t, m, "a", 3)
	p2 := mustCreate(t, m, "z", 3)
	_ = m.InvitePlayer(p1.ID, "a", "b")
	_ = m.InvitePlayer(p2.ID, "z", "b")

	if got := m.PendingInvitesFor("b"); len(got) != 2 {
		t.Fatalf("pending = %v", got)
	}
	_ = m.AcceptInvite("b", p1.ID)
	if len(p2.PendingInvites) != 0 {
		t.Error("invite from the other party survived")
	}
}

func TestDeclineInvite_NotifiesInviter(t *testing.T) {
	m, rec := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 3)
	_ = m.InvitePlayer(p.ID, "a", "b")

	if err := m.DeclineInvite("b", p.ID); err != nil {
		t.Fatalf("DeclineInvite: %v", err)
	}
	msg, ok := coretest.Last[protocol.PartyInviteDeclined](rec, "a")
	if !ok || msg.Target != "b" {
		t.Errorf("PartyInviteDeclined = %+v, %v", msg, ok)
	}
	if p.Size() != 1 || len(p.PendingInvites) != 0 {
		t.Errorf("size = %d pending = %d", p.Size(), len(p.PendingInvites))
	}
}

func TestKickMember(t *testing.T) {
	m, rec := newTestManager(partyConfig())
	var reasons []string
	m.Left.Add(func(e LeaveEvent) { reasons = append(reasons, e.Reason) })

	p := mustCreate(t, m, "a", 3)
	mustAdd(t, m, p, "b")
	mustAdd(t, m, p, "c")

	if err := m.KickMember(p.ID, "b", "c"); !errors.Is(err, domain.ErrNotPartyLeader) {
		t.Errorf("member kick: err = %v", err)
	}
	if err := m.KickMember(p.ID, "a", "x"); !errors.Is(err, domain.ErrTargetNotMember) {
		t.Errorf("outsider kick: err = %v", err)
	}
	if err := m.KickMember(p.ID, "a", "c"); err != nil {
		t.Fatalf("KickMember: %v", err)
	}

	msg, ok := coretest.Last[protocol.PartyRemoved](rec, "c")
	if !ok || msg.Type != protocol.TypePartyKicked || msg.By != "a" {
		t.Errorf("kicked notification = %+v, %v", msg, ok)
	}
	if coretest.Count[protocol.PartyRemoved](rec, "b") != 0 {
		t.Error("bystander got a removal notice")
	}
	if !slices.Equal(reasons, []string{ReasonKicked}) {
		t.Errorf("leave reasons = %v", reasons)
	}
}

func TestKickMember_ValidatorDenies(t *testing.T) {
	ctrl := gomock.NewController(t)
	v := mocks.NewMockAccessValidator(ctrl)
	v.EXPECT().CanCreateParty(gomock.Any()).Return(true, "")
	v.EXPECT().CanInviteToParty(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, "")
	v.EXPECT().CanKickFromParty(gomock.Any(), domain.ConnID("a"), domain.ConnID("b")).Return(false, "protected")

	m := NewManager(partyConfig(), core.NewSeededIDGen(1), &coretest.Recorder{}, v)
	p := mustCreate(t, m, "a", 3)
	mustAdd(t, m, p, "b")

	err := m.KickMember(p.ID, "a", "b")
	if !errors.Is(err, domain.ErrValidatorDenied) || domain.ReasonOf(err) != "protected" {
		t.Fatalf("err = %v", err)
	}
	if !p.HasMember("b") {
		t.Error("denied kick removed the member")
	}
}

func TestCleanupExpiredInvites_Idempotent(t *testing.T) {
	m, _ := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 4)
	_ = m.InvitePlayer(p.ID, "a", "b")
	m.Update(30 * time.Second)
	_ = m.InvitePlayer(p.ID, "a", "c")
	m.Update(30 * time.Second)

	if n := m.CleanupExpiredInvites(); n != 1 {
		t.Fatalf("first sweep removed %d, want 1", n)
	}
	if n := m.CleanupExpiredInvites(); n != 0 {
		t.Fatalf("second sweep removed %d, want 0", n)
	}
	if _, ok := p.Invite("c"); !ok {
		t.Error("live invite swept")
	}
}

func TestUpdate_SweepsOnInterval(t *testing.T) {
	cfg := partyConfig()
	cfg.InviteSweepInterval = 10 * time.Second
	cfg.InviteTimeout = 5 * time.Second
	m, _ := newTestManager(cfg)
	p := mustCreate(t, m, "a", 4)
	_ = m.InvitePlayer(p.ID, "a", "b")

	m.Update(6 * time.Second)
	if len(p.PendingInvites) != 1 {
		t.Fatal("swept before the interval")
	}
	m.Update(4 * time.Second)
	if len(p.PendingInvites) != 0 {
		t.Error("interval sweep missed an expired invite")
	}
}

func TestInviterLeaving_RevokesInvites(t *testing.T) {
	m, _ := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 4)
	_ = m.UpdateSettings(p.ID, "a", domain.PartySettings{AllowMemberInvites: true})
	mustAdd(t, m, p, "b")
	if err := m.InvitePlayer(p.ID, "b", "c"); err != nil {
		t.Fatalf("member invite: %v", err)
	}

	_ = m.LeaveParty("b")
	if _, ok := p.Invite("c"); ok {
		t.Error("invite outlived its inviter")
	}
}

func TestAutoAcceptAndPublicJoin(t *testing.T) {
	m, _ := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 3)

	if err := m.JoinPublicParty("b", p.ID); !errors.Is(err, domain.ErrPartyNotPublic) {
		t.Fatalf("private join: err = %v", err)
	}
	_ = m.UpdateSettings(p.ID, "a", domain.PartySettings{IsPublic: true, AutoAccept: true})

	if err := m.InvitePlayer(p.ID, "a", "b"); err != nil {
		t.Fatalf("InvitePlayer: %v", err)
	}
	if !p.HasMember("b") || len(p.PendingInvites) != 0 {
		t.Fatal("auto-accept did not add the target")
	}
	if err := m.JoinPublicParty("c", p.ID); err != nil {
		t.Fatalf("JoinPublicParty: %v", err)
	}
	if err := m.JoinPublicParty("d", p.ID); !errors.Is(err, domain.ErrPartyFull) {
		t.Errorf("full public party: err = %v", err)
	}
	if got := m.Mates("c"); !slices.Equal(got, []domain.ConnID{"a", "b"}) {
		t.Errorf("Mates(c) = %v", got)
	}
}

func TestTransferLeadership(t *testing.T) {
	m, rec := newTestManager(partyConfig())
	p := mustCreate(t, m, "a", 3)
	mustAdd(t, m, p, "b")

	if err := m.TransferLeadership(p.ID, "b", "a"); !errors.Is(err, domain.ErrNotPartyLeader) {
		t.Errorf("non-leader transfer: err = %v", err)
	}
	if err := m.TransferLeadership(p.ID, "a", "b"); err != nil {
		t.Fatalf("TransferLeadership: %v", err)
	}
	msg, ok := coretest.Last[protocol.PartyLeaderChanged](rec, "a")
	if p.Leader != "b" || !ok || msg.Reason != ReasonTransferred {
		t.Errorf("leader = %s, msg = %+v", p.Leader, msg)
	}
}
