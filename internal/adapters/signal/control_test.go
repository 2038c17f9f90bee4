package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core/coretest"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

func newController(t *testing.T, limit int) (*SignalWSController, *coretest.Recorder) {
	t.Helper()
	cfg := config.Default()
	rec := &coretest.Recorder{}
	o, err := orch.New(cfg, app.NewRegistry(), rec, orch.Deps{})
	if err != nil {
		t.Fatal(err)
	}
	return NewSignalWSController(cfg, o, NewRateLimiter(limit, time.Minute)), rec
}

func TestRoute_Rejections(t *testing.T) {
	tests := []struct {
		name string
		data string
		typ  string
		want error
	}{
		{"malformed", `{"type":`, "", domain.ErrBadRequest},
		{"unknown type", `{"type":"teleport"}`, "teleport", domain.ErrBadRequest},
		{"create without name", `{"type":"create_room"}`, protocol.ReqCreateRoom, domain.ErrBadRequest},
		{"join without target", `{"type":"join_room"}`, protocol.ReqJoinRoom, domain.ErrBadRequest},
		{"chat to nowhere", `{"type":"chat","channel":"all","text":"x"}`, protocol.ReqChat, domain.ErrBadRequest},
		{"negative option", `{"type":"cast_vote","vote_id":1,"option_index":-1}`, protocol.ReqCastVote, domain.ErrBadRequest},
		{"wrong field type", `{"type":"swap_team","team_id":"red"}`, protocol.ReqSwapTeam, domain.ErrBadRequest},
	}
	ctl, _ := newController(t, 100)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, op, err := ctl.route("a", []byte(tt.data))
			if !errors.Is(err, tt.want) || op != nil {
				t.Fatalf("route = %v, op set %v", err, op != nil)
			}
			if typ != tt.typ {
				t.Errorf("type = %q, want %q", typ, tt.typ)
			}
		})
	}
}

func TestRoute_RunsOperation(t *testing.T) {
	ctl, rec := newController(t, 100)
	typ, op, err := ctl.route("a", []byte(`{"type":"create_room","name":"alpha","max_players":4}`))
	if err != nil {
		t.Fatal(err)
	}
	if typ != protocol.ReqCreateRoom {
		t.Errorf("type = %q", typ)
	}
	if err := op(ctl.Orch); err != nil {
		t.Fatal(err)
	}
	room, ok := ctl.Orch.Rooms.ByName("alpha")
	if !ok || room.Meta().MaxPlayers != 4 || !room.HasMember("a") {
		t.Fatal("room not created and joined")
	}
	if _, ok := coretest.Last[protocol.RoomJoined](rec, "a"); !ok {
		t.Error("no room_joined")
	}

	_, op, err = ctl.route("a", []byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := op(ctl.Orch); err != nil {
		t.Fatal(err)
	}
	if _, ok := coretest.Last[protocol.Pong](rec, "a"); !ok {
		t.Error("no pong")
	}
}

func TestRoute_OperationErrorBecomesFail(t *testing.T) {
	ctl, rec := newController(t, 100)
	typ, op, err := ctl.route("a", []byte(`{"type":"join_room","name":"nowhere"}`))
	if err != nil {
		t.Fatal(err)
	}
	opErr := op(ctl.Orch)
	if !errors.Is(opErr, domain.ErrRoomNotFound) {
		t.Fatalf("join = %v", opErr)
	}
	ctl.Orch.Fail("a", typ, opErr)
	fail, ok := coretest.Last[protocol.Fail](rec, "a")
	if !ok || fail.Type != protocol.TypeRoomFail || fail.Code != "not_found" || fail.Request != protocol.ReqJoinRoom {
		t.Errorf("fail = %+v", fail)
	}
}

func TestRoute_RateLimited(t *testing.T) {
	ctl, _ := newController(t, 2)
	for range 2 {
		if _, _, err := ctl.route("a", []byte(`{"type":"ping"}`)); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := ctl.route("a", []byte(`{"type":"ping"}`)); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("third request = %v", err)
	}
	if _, _, err := ctl.route("b", []byte(`{"type":"ping"}`)); err != nil {
		t.Errorf("other connection limited: %v", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	now := time.Unix(100, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two attempts denied")
	}
	if rl.Allow("a") {
		t.Fatal("third attempt in window allowed")
	}
	now = now.Add(1500 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("attempt after window denied")
	}

	rl.Forget("a")
	if !rl.Allow("a") || !rl.Allow("a") {
		t.Error("history survived Forget")
	}
}
