package signal

import (
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

// handler decodes a request on the transport goroutine and returns the
// operation to run on the orchestrator loop.
type handler func(v *validator.Validate, id domain.ConnID, data []byte) (func(*orch.Orchestrator) error, error)

func decode[T any](v *validator.Validate, data []byte) (T, error) {
	var req T
	if err := json.Unmarshal(data, &req); err != nil {
		return req, domain.Denied(domain.ErrBadRequest, "malformed payload")
	}
	if err := v.Struct(req); err != nil {
		return req, domain.Denied(domain.ErrBadRequest, err.Error())
	}
	return req, nil
}

// with binds an operation taking a decoded request.
func with[T any](op func(*orch.Orchestrator, domain.ConnID, T) error) handler {
	return func(v *validator.Validate, id domain.ConnID, data []byte) (func(*orch.Orchestrator) error, error) {
		req, err := decode[T](v, data)
		if err != nil {
			return nil, err
		}
		return func(o *orch.Orchestrator) error { return op(o, id, req) }, nil
	}
}

// bare binds an operation without a payload.
func bare(op func(*orch.Orchestrator, domain.ConnID) error) handler {
	return func(_ *validator.Validate, id domain.ConnID, _ []byte) (func(*orch.Orchestrator) error, error) {
		return func(o *orch.Orchestrator) error { return op(o, id) }, nil
	}
}

func quiet(op func(*orch.Orchestrator, domain.ConnID)) handler {
	return bare(func(o *orch.Orchestrator, id domain.ConnID) error {
		op(o, id)
		return nil
	})
}

var handlers = map[string]handler{
	protocol.ReqCreateRoom:      with((*orch.Orchestrator).CreateRoom),
	protocol.ReqJoinRoom:        with((*orch.Orchestrator).JoinRoom),
	protocol.ReqExitRoom:        bare((*orch.Orchestrator).ExitRoom),
	protocol.ReqListRooms:       quiet((*orch.Orchestrator).ListRooms),
	protocol.ReqCreateParty:     with((*orch.Orchestrator).CreateParty),
	protocol.ReqInvitePlayer:    with((*orch.Orchestrator).InvitePlayer),
	protocol.ReqRespondInvite:   with((*orch.Orchestrator).RespondInvite),
	protocol.ReqLeaveParty:      bare((*orch.Orchestrator).LeaveParty),
	protocol.ReqKickPartyMember: with((*orch.Orchestrator).KickPartyMember),
	protocol.ReqJoinParty:       with((*orch.Orchestrator).JoinParty),
	protocol.ReqSwapTeam:        with((*orch.Orchestrator).SwapTeam),
	protocol.ReqPickPlayer:      with((*orch.Orchestrator).PickPlayer),
	protocol.ReqBalanceTeams:    bare((*orch.Orchestrator).BalanceTeams),
	protocol.ReqShuffleTeams:    bare((*orch.Orchestrator).ShuffleTeams),
	protocol.ReqStartVote:       with((*orch.Orchestrator).StartVote),
	protocol.ReqCastVote:        with((*orch.Orchestrator).CastVote),
	protocol.ReqCancelVote:      with((*orch.Orchestrator).CancelVote),
	protocol.ReqStartMatch:      bare((*orch.Orchestrator).StartMatch),
	protocol.ReqPauseMatch:      bare((*orch.Orchestrator).PauseMatch),
	protocol.ReqResumeMatch:     bare((*orch.Orchestrator).ResumeMatch),
	protocol.ReqEndMatch:        bare((*orch.Orchestrator).EndMatch),
	protocol.ReqChat:            with((*orch.Orchestrator).Chat),
	protocol.ReqRename: with(func(o *orch.Orchestrator, id domain.ConnID, req protocol.RenameRequest) error {
		return o.Rename(id, req.Name)
	}),
	protocol.ReqWhoAmI: quiet((*orch.Orchestrator).WhoAmI),
	protocol.ReqPing:   quiet((*orch.Orchestrator).Ping),
}

// route resolves one inbound frame into a loop operation and the request
// type it answers.
func (ctl *SignalWSController) route(id domain.ConnID, data []byte) (string, func(*orch.Orchestrator) error, error) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, domain.Denied(domain.ErrBadRequest, "malformed payload")
	}
	if !ctl.Limiter.Allow(id) {
		return env.Type, nil, domain.ErrRateLimited
	}
	h, ok := handlers[env.Type]
	if !ok {
		return env.Type, nil, domain.Denied(domain.ErrBadRequest, "unknown request type")
	}
	op, err := h(ctl.validate, id, data)
	return env.Type, op, err
}

func (ctl *SignalWSController) handleSignal(id domain.ConnID, data []byte) {
	typ, op, err := ctl.route(id, data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(id)).Str("type", typ).Msg("rejected request")
		ctl.Orch.Submit(func() { ctl.Orch.Fail(id, typ, err) })
		return
	}
	ctl.Orch.Submit(func() {
		if err := op(ctl.Orch); err != nil {
			ctl.Orch.Fail(id, typ, err)
		}
	})
}
