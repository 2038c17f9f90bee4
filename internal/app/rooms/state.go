package rooms

import (
	"time"

	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

type StateChange struct {
	From domain.RoomState
	To   domain.RoomState
}

// StateMachine drives a room through lobby, countdown, match and post-match
// linger. Timers advance only through Update.
type StateMachine struct {
	cfg     config.RoomConfig
	state   domain.RoomState
	timer   time.Duration
	players int
	expired bool

	OnChange core.Listeners[StateChange]
}

func NewStateMachine(cfg config.RoomConfig) *StateMachine {
	return &StateMachine{cfg: cfg, state: domain.StateLobby}
}

func (s *StateMachine) State() domain.RoomState { return s.state }

// Countdown is the time left in the current timed phase.
func (s *StateMachine) Countdown() time.Duration { return s.timer }

// Expired reports a finished linger that does not return to the lobby.
func (s *StateMachine) Expired() bool { return s.expired }

func (s *StateMachine) set(to domain.RoomState) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	switch to {
	case domain.StateStarting:
		s.timer = s.cfg.StartCountdown
	case domain.StateEnded:
		s.timer = s.cfg.EndedLinger
	default:
		s.timer = 0
	}
	s.OnChange.Emit(StateChange{From: from, To: to})
}

// PlayerCountChanged starts or aborts the countdown around the minimum.
func (s *StateMachine) PlayerCountChanged(n int) {
	s.players = n
	switch {
	case s.state == domain.StateLobby && n >= s.cfg.MinPlayersToStart:
		s.set(domain.StateStarting)
	case s.state == domain.StateStarting && n < s.cfg.MinPlayersToStart:
		s.set(domain.StateLobby)
	}
}

func (s *StateMachine) Update(dt time.Duration) {
	switch s.state {
	case domain.StateStarting:
		if s.timer -= dt; s.timer <= 0 {
			s.set(domain.StatePlaying)
		}
	case domain.StateEnded:
		if s.expired {
			return
		}
		if s.timer -= dt; s.timer > 0 {
			return
		}
		if !s.cfg.ReturnToLobby {
			s.timer = 0
			s.expired = true
			return
		}
		s.set(domain.StateLobby)
		s.PlayerCountChanged(s.players)
	}
}

// Start skips the countdown.
func (s *StateMachine) Start() error {
	if s.state != domain.StateLobby && s.state != domain.StateStarting {
		return domain.ErrInvalidTransition
	}
	s.set(domain.StatePlaying)
	return nil
}

func (s *StateMachine) Pause() error {
	if s.state != domain.StatePlaying {
		return domain.ErrInvalidTransition
	}
	s.set(domain.StatePaused)
	return nil
}

func (s *StateMachine) Resume() error {
	if s.state != domain.StatePaused {
		return domain.ErrInvalidTransition
	}
	s.set(domain.StatePlaying)
	return nil
}

func (s *StateMachine) End() error {
	if !s.state.InMatch() && s.state != domain.StateStarting {
		return domain.ErrInvalidTransition
	}
	s.set(domain.StateEnded)
	return nil
}

// Reset returns to the lobby from any other state.
func (s *StateMachine) Reset() error {
	if s.state == domain.StateLobby {
		return domain.ErrInvalidTransition
	}
	s.expired = false
	s.set(domain.StateLobby)
	s.PlayerCountChanged(s.players)
	return nil
}

// CanPlayerJoinState reports whether the current phase accepts joins.
func (s *StateMachine) CanPlayerJoinState() (bool, string) {
	switch {
	case s.state == domain.StateEnded:
		return false, "match has ended"
	case s.state.InMatch() && !s.cfg.AllowJoinInProgress:
		return false, "match in progress"
	}
	return true, ""
}
