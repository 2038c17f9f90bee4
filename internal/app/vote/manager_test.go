package vote

import (
	"errors"
	"math/rand/v2"
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

type fakeRoom struct {
	members []domain.ConnID
}

func (r *fakeRoom) ID() domain.RoomID              { return 3 }
func (r *fakeRoom) Members() []domain.ConnID       { return r.members }
func (r *fakeRoom) HasMember(c domain.ConnID) bool { return slices.Contains(r.members, c) }

func (r *fakeRoom) remove(c domain.ConnID) {
	r.members = slices.DeleteFunc(r.members, func(m domain.ConnID) bool { return m == c })
}

type fakeActions struct {
	kicked   []domain.ConnID
	maps     []string
	ended    []string
	surrends []domain.ConnID
}

func (a *fakeActions) KickPlayer(target domain.ConnID, _ string) { a.kicked = append(a.kicked, target) }
func (a *fakeActions) ChangeMap(name string)                     { a.maps = append(a.maps, name) }
func (a *fakeActions) EndMatch(reason string)                    { a.ended = append(a.ended, reason) }
func (a *fakeActions) Surrender(by domain.ConnID)                { a.surrends = append(a.surrends, by) }

func voteConfig(tie string) config.VoteConfig {
	return config.VoteConfig{
		Enabled:                  true,
		DefaultDuration:          30 * time.Second,
		MinParticipation:         0.5,
		WinningThreshold:         0.5,
		DefaultCooldown:          time.Minute,
		FailedCooldownMultiplier: 2,
		TieResolution:            tie,
		MapPool:                  []string{"dust", "harbor", "mesa"},
		HistorySize:              2,
	}
}

type fixture struct {
	m       *Manager
	room    *fakeRoom
	rec     *coretest.Recorder
	actions *fakeActions
	results []domain.VoteResult
}

func newFixture(t *testing.T, cfg config.VoteConfig, members ...domain.ConnID) *fixture {
	t.Helper()
	f := &fixture{room: &fakeRoom{members: members}, rec: &coretest.Recorder{}, actions: &fakeActions{}}
	env := &Env{Room: f.room, Actions: f.actions}
	f.m = NewManager(env, cfg, core.NewSeededIDGen(1), f.rec)
	f.m.SetRand(rand.New(rand.NewPCG(1, 2)))
	f.m.RegisterBuiltins()
	if err := f.m.RegisterType(&BaseType{TypeID: "poll", Name: "Poll", Rules: SettingsFromConfig(cfg)}); err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	f.m.Ended.Add(func(r domain.VoteResult) { f.results = append(f.results, r) })
	return f
}

func (f *fixture) start(t *testing.T, initiator domain.ConnID, typeID string, data map[string]string) *domain.ActiveVote {
	t.Helper()
	v, err := f.m.StartVote(initiator, typeID, data)
	if err != nil {
		t.Fatalf("StartVote(%s): %v", typeID, err)
	}
	return v
}

func (f *fixture) cast(t *testing.T, voter domain.ConnID, option int) {
	t.Helper()
	if err := f.m.CastVote(voter, 0, option); err != nil {
		t.Fatalf("CastVote(%s, %d): %v", voter, option, err)
	}
}

func (f *fixture) last(t *testing.T) domain.VoteResult {
	t.Helper()
	if len(f.results) == 0 {
		t.Fatal("no vote ended")
	}
	return f.results[len(f.results)-1]
}

func TestRegisterType_Duplicate(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a")

	err := f.m.RegisterType(NewKickPlayer(SettingsFromConfig(voteConfig("fail"))))
	if !errors.Is(err, domain.ErrDuplicateType) {
		t.Fatalf("err = %v, want ErrDuplicateType", err)
	}
	want := []string{TypeKickPlayer, TypeChangeMap, TypeEndMatch, TypeSurrender, "poll"}
	if got := f.m.Types(); !slices.Equal(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

func TestStartVote_Rejections(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b")

	if _, err := f.m.StartVote("a", "nope", nil); !errors.Is(err, domain.ErrUnknownVoteType) {
		t.Errorf("unknown type: err = %v", err)
	}
	if _, err := f.m.StartVote("z", "poll", nil); !errors.Is(err, domain.ErrCannotInitiate) {
		t.Errorf("outsider: err = %v", err)
	}
	if _, err := f.m.StartVote("a", TypeKickPlayer, map[string]string{"target": "a"}); domain.ReasonOf(err) != "cannot kick yourself" {
		t.Errorf("self kick: err = %v", err)
	}
	f.start(t, "a", "poll", nil)
	if _, err := f.m.StartVote("b", "poll", nil); !errors.Is(err, domain.ErrVoteActive) {
		t.Errorf("second vote: err = %v", err)
	}
}

func TestStartVote_Disabled(t *testing.T) {
	cfg := voteConfig("fail")
	cfg.Enabled = false
	f := newFixture(t, cfg, "a")

	if _, err := f.m.StartVote("a", "poll", nil); !errors.Is(err, domain.ErrVotesDisabled) {
		t.Fatalf("err = %v, want ErrVotesDisabled", err)
	}
}

func TestStartVote_BroadcastsToRoom(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b")
	v := f.start(t, "a", "poll", nil)

	for _, c := range []domain.ConnID{"a", "b"} {
		msg, ok := coretest.Last[protocol.VoteStarted](f.rec, c)
		if !ok || msg.VoteID != v.ID || len(msg.Options) != 2 {
			t.Errorf("%s: VoteStarted = %+v, %v", c, msg, ok)
		}
	}
}

func TestCastVote_Validation(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b", "c")

	if err := f.m.CastVote("a", 0, 0); !errors.Is(err, domain.ErrNoActiveVote) {
		t.Errorf("no vote: err = %v", err)
	}
	v := f.start(t, "a", "poll", nil)
	if err := f.m.CastVote("a", v.ID+1, 0); !errors.Is(err, domain.ErrVoteMismatch) {
		t.Errorf("mismatch: err = %v", err)
	}
	if err := f.m.CastVote("a", v.ID, 2); !errors.Is(err, domain.ErrInvalidOption) {
		t.Errorf("bad option: err = %v", err)
	}
	if err := f.m.CastVote("z", v.ID, 0); !errors.Is(err, domain.ErrCannotVote) {
		t.Errorf("outsider: err = %v", err)
	}
	f.cast(t, "a", 0)
	if err := f.m.CastVote("a", v.ID, 1); !errors.Is(err, domain.ErrAlreadyVoted) {
		t.Errorf("revote: err = %v", err)
	}
	upd, ok := coretest.Last[protocol.VoteUpdate](f.rec, "c")
	if !ok || upd.Voted != 1 || upd.Eligible != 3 || upd.Tally[0] != 1 {
		t.Errorf("VoteUpdate = %+v, %v", upd, ok)
	}
}

func TestResolve_LowParticipationFails(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b", "c", "d")
	f.start(t, "a", "poll", nil)
	f.cast(t, "a", 0)

	f.m.Update(29 * time.Second)
	if len(f.results) != 0 {
		t.Fatal("vote ended before its timer")
	}
	f.m.Update(time.Second)

	res := f.last(t)
	if res.Reason != domain.EndTimerExpired || res.Passed {
		t.Fatalf("result = %+v", res)
	}
	if res.Participation != 0.25 || res.Eligible != 4 || res.Cast != 1 {
		t.Errorf("participation = %v (%d/%d)", res.Participation, res.Cast, res.Eligible)
	}
	if res.WinningOption != domain.NoWinner {
		t.Errorf("WinningOption = %d, want NoWinner", res.WinningOption)
	}
	if _, ok := f.m.Active(); ok {
		t.Error("vote still active")
	}
}

func TestResolve_TieResolution(t *testing.T) {
	cases := []struct {
		tie        string
		wantWinner int
		wantPassed bool
	}{
		{"fail", domain.NoWinner, false},
		{"first_option", 0, true},
		{"last_option", 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.tie, func(t *testing.T) {
			f := newFixture(t, voteConfig(tc.tie), "a", "b")
			f.start(t, "a", "poll", nil)
			f.cast(t, "a", 1)
			f.cast(t, "b", 0)

			res := f.last(t)
			if res.Reason != domain.EndAllVoted {
				t.Fatalf("Reason = %s, want all_voted", res.Reason)
			}
			if res.WinningOption != tc.wantWinner || res.Passed != tc.wantPassed {
				t.Errorf("winner=%d passed=%v, want %d %v", res.WinningOption, res.Passed, tc.wantWinner, tc.wantPassed)
			}
		})
	}
}

func TestResolve_RandomTiePicksATiedOption(t *testing.T) {
	f := newFixture(t, voteConfig("random"), "a", "b", "c", "d")
	f.start(t, "a", TypeChangeMap, nil)
	f.cast(t, "a", 0)
	f.cast(t, "b", 2)
	f.cast(t, "c", 0)
	f.cast(t, "d", 2)

	res := f.last(t)
	if res.WinningOption != 0 && res.WinningOption != 2 {
		t.Fatalf("WinningOption = %d, want 0 or 2", res.WinningOption)
	}
	if !res.Passed {
		t.Fatal("expected pass")
	}
	if want := []string{"dust", "harbor", "mesa"}[res.WinningOption]; !slices.Equal(f.actions.maps, []string{want}) {
		t.Errorf("ChangeMap calls = %v, want [%s]", f.actions.maps, want)
	}
}

func TestResolve_InitiatorChoice(t *testing.T) {
	t.Run("initiator vote breaks the tie", func(t *testing.T) {
		f := newFixture(t, voteConfig("initiator_choice"), "a", "b")
		f.start(t, "a", "poll", nil)
		f.cast(t, "a", 1)
		f.cast(t, "b", 0)

		if res := f.last(t); res.WinningOption != 1 || !res.Passed {
			t.Errorf("result = %+v", res)
		}
	})
	t.Run("no initiator vote means no winner", func(t *testing.T) {
		f := newFixture(t, voteConfig("initiator_choice"), "a", "b", "c")
		f.start(t, "a", "poll", nil)
		f.cast(t, "b", 0)
		f.cast(t, "c", 1)
		f.m.Update(30 * time.Second)

		res := f.last(t)
		if res.Reason != domain.EndTimerExpired || res.WinningOption != domain.NoWinner || res.Passed {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestCheckVoteEnd_AllVotedBeforeTimer(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b", "c")
	f.start(t, "a", "poll", nil)
	f.cast(t, "a", 0)
	f.m.Update(10 * time.Second)
	f.cast(t, "b", 0)
	if len(f.results) != 0 {
		t.Fatal("ended before everyone voted")
	}
	f.cast(t, "c", 1)

	res := f.last(t)
	if res.Reason != domain.EndAllVoted || !res.Passed || res.WinningOption != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(f.results) != 1 {
		t.Errorf("ended %d times", len(f.results))
	}
	f.m.Update(time.Minute)
	if len(f.results) != 1 {
		t.Error("timer ended an already resolved vote")
	}
}

func TestCheckVoteEnd_TimerWithPartialTurnout(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b", "c")
	f.start(t, "a", "poll", nil)
	f.cast(t, "a", 0)
	f.cast(t, "b", 0)
	f.m.Update(30 * time.Second)

	res := f.last(t)
	if res.Reason != domain.EndTimerExpired || !res.Passed || res.Eligible != 3 || res.Cast != 2 {
		t.Errorf("result = %+v", res)
	}
	ended, ok := coretest.Last[protocol.VoteEnded](f.rec, "c")
	if !ok || !ended.Passed || ended.Reason != string(domain.EndTimerExpired) {
		t.Errorf("VoteEnded = %+v, %v", ended, ok)
	}
}

func TestCooldowns_PassAndFail(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b")

	f.start(t, "a", "poll", nil)
	f.cast(t, "a", 0)
	f.cast(t, "b", 0)
	if !f.last(t).Passed {
		t.Fatal("expected pass")
	}
	_, err := f.m.StartVote("b", "poll", nil)
	if !errors.Is(err, domain.ErrVoteOnCooldown) || domain.KindOf(err) != domain.KindTiming {
		t.Fatalf("err = %v, want ErrVoteOnCooldown", err)
	}
	if got := domain.RemainingOf(err); got != time.Minute {
		t.Errorf("remaining = %s, want 1m", got)
	}

	f.m.Update(time.Minute)
	f.start(t, "b", "poll", nil)
	f.cast(t, "a", 1)
	f.cast(t, "b", 1)
	if res := f.last(t); !res.Passed || res.WinningOption != 1 {
		t.Errorf("open poll result = %+v, want option 1 to pass", res)
	}
}

func TestCooldowns_FailedVotePenalizesInitiator(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b")
	f.start(t, "a", TypeEndMatch, nil)
	f.cast(t, "a", 1)
	f.cast(t, "b", 1)
	if f.last(t).Passed {
		t.Fatal("No majority must not pass a yes/no vote")
	}

	cd := f.m.Cooldowns()
	if got := cd.Remaining(TypeEndMatch, "a"); got != 2*time.Minute {
		t.Errorf("initiator cooldown = %s, want 2m", got)
	}
	if got := cd.Remaining(TypeEndMatch, "b"); got != time.Minute {
		t.Errorf("global cooldown = %s, want 1m", got)
	}
	f.m.Update(time.Minute)
	if got := cd.Remaining(TypeEndMatch, "b"); got != 0 {
		t.Errorf("global cooldown after 1m = %s", got)
	}
	if got := cd.Remaining(TypeEndMatch, "a"); got != time.Minute {
		t.Errorf("initiator cooldown after 1m = %s", got)
	}
	if len(f.actions.ended) != 0 {
		t.Errorf("EndMatch applied on a failed vote")
	}
}

func TestForcedEnd_NoCooldownNoApply(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b", "c")
	f.start(t, "b", TypeKickPlayer, map[string]string{"target": "c"})
	f.cast(t, "a", 0)

	f.room.remove("b")
	f.m.HandlePlayerLeft("b")

	res := f.last(t)
	if res.Reason != domain.EndInitiatorLeft || res.Passed {
		t.Fatalf("result = %+v", res)
	}
	if f.m.Cooldowns().Len() != 0 {
		t.Error("forced end started a cooldown")
	}
	if len(f.actions.kicked) != 0 {
		t.Error("forced end applied the result")
	}
}

func TestHandlePlayerLeft_DropsBallotAndRechecks(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b", "c")
	f.start(t, "a", "poll", nil)
	f.cast(t, "a", 0)
	f.cast(t, "b", 1)

	f.room.remove("b")
	f.m.HandlePlayerLeft("b")
	v, ok := f.m.Active()
	if !ok {
		t.Fatal("vote ended early")
	}
	if _, voted := v.Votes["b"]; voted {
		t.Error("ballot of departed player kept")
	}

	f.cast(t, "c", 0)
	if res := f.last(t); res.Reason != domain.EndAllVoted || res.Tally[1] != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestOnRoomStateChanged(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b")
	f.start(t, "a", "poll", nil)

	f.m.OnRoomStateChanged(domain.StatePaused)
	if _, ok := f.m.Active(); !ok {
		t.Fatal("pause ended the vote")
	}
	f.m.OnRoomStateChanged(domain.StateEnded)
	if res := f.last(t); res.Reason != domain.EndStateChanged || res.Passed {
		t.Errorf("result = %+v", res)
	}
}

func TestShutdown_RoomClosed(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a")
	f.start(t, "a", "poll", nil)
	f.m.Shutdown()

	if res := f.last(t); res.Reason != domain.EndRoomClosed {
		t.Errorf("Reason = %s, want room_closed", res.Reason)
	}
}

func TestKickVote(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b", "c")
	f.start(t, "a", TypeKickPlayer, map[string]string{"target": "c"})

	if err := f.m.CastVote("c", 0, 1); !errors.Is(err, domain.ErrCannotVote) {
		t.Fatalf("target vote: err = %v", err)
	}
	f.cast(t, "a", 0)
	f.cast(t, "b", 0)

	res := f.last(t)
	if !res.Passed || res.Eligible != 2 {
		t.Fatalf("result = %+v", res)
	}
	if !slices.Equal(f.actions.kicked, []domain.ConnID{"c"}) {
		t.Errorf("kicked = %v, want [c]", f.actions.kicked)
	}
}

func TestCancelVote_RequiresAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	roles := mocks.NewMockRoleProvider(ctrl)
	table := map[domain.ConnID]domain.Role{"a": domain.RolePlayer, "b": domain.RolePlayer, "m": domain.RoleAdmin}
	roles.EXPECT().PlayerRole(gomock.Any()).DoAndReturn(func(c domain.ConnID) domain.Role { return table[c] }).AnyTimes()

	f := newFixture(t, voteConfig("fail"), "a", "b", "m")
	f.m.env.Roles = roles
	v := f.start(t, "a", "poll", nil)

	if err := f.m.CancelVote("b", v.ID); !errors.Is(err, domain.ErrNoPermission) {
		t.Fatalf("player cancel: err = %v", err)
	}
	if err := f.m.CancelVote("m", v.ID); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if res := f.last(t); res.Reason != domain.EndCancelled || res.Passed {
		t.Errorf("result = %+v", res)
	}
	if err := f.m.CancelVote("m", 0); !errors.Is(err, domain.ErrNoActiveVote) {
		t.Errorf("cancel twice: err = %v", err)
	}
}

type teams map[domain.ConnID][]domain.ConnID

func (t teams) Teammates(c domain.ConnID) []domain.ConnID { return t[c] }

func TestSurrender_TeamScoped(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a", "b", "x", "y")
	red := []domain.ConnID{"a", "b"}
	f.m.env.Teams = teams{"a": red, "b": red}
	f.m.env.State = func() domain.RoomState { return domain.StatePlaying }

	if _, err := f.m.StartVote("x", TypeSurrender, nil); !errors.Is(err, domain.ErrCannotInitiate) {
		t.Fatalf("teamless surrender: err = %v", err)
	}
	f.start(t, "a", TypeSurrender, nil)
	if err := f.m.CastVote("x", 0, 0); !errors.Is(err, domain.ErrCannotVote) {
		t.Fatalf("other team vote: err = %v", err)
	}
	f.cast(t, "a", 0)
	f.cast(t, "b", 0)

	if res := f.last(t); !res.Passed || res.Eligible != 2 {
		t.Fatalf("result = %+v", res)
	}
	if !slices.Equal(f.actions.surrends, []domain.ConnID{"a"}) {
		t.Errorf("surrenders = %v", f.actions.surrends)
	}
}

func TestHistory_Bounded(t *testing.T) {
	f := newFixture(t, voteConfig("fail"), "a")
	for range 3 {
		f.start(t, "a", "poll", nil)
		f.m.Shutdown()
	}
	h := f.m.History()
	if len(h) != 2 {
		t.Fatalf("len(History()) = %d, want 2", len(h))
	}
	if h[1].VoteID != f.last(t).VoteID {
		t.Errorf("history tail = %d, want latest %d", h[1].VoteID, f.last(t).VoteID)
	}
}
