package domain

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for the caller; the wire layer reports it as a code.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindCapacity
	KindConflict
	KindPermission
	KindTiming
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindCapacity:
		return "capacity"
	case KindConflict:
		return "conflict"
	case KindPermission:
		return "permission"
	case KindTiming:
		return "timing"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// kindError is a sentinel that knows its category.
type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Kind() Kind    { return e.kind }

func sentinel(k Kind, msg string) error { return &kindError{kind: k, msg: msg} }

// Room errors.
var (
	ErrRoomNotFound      = sentinel(KindNotFound, "room not found")
	ErrRoomFull          = sentinel(KindCapacity, "room is full")
	ErrRoomLimit         = sentinel(KindCapacity, "room limit reached")
	ErrDuplicateRoomName = sentinel(KindConflict, "room name already in use")
	ErrAlreadyInRoom     = sentinel(KindConflict, "already in a room")
	ErrNotInRoom         = sentinel(KindNotFound, "not in a room")
	ErrInvalidRoom       = sentinel(KindValidation, "invalid room parameters")
	ErrAccessDenied      = sentinel(KindPermission, "access denied")
	ErrValidatorDenied   = sentinel(KindPermission, "denied by validator")
	ErrStateDenied       = sentinel(KindConflict, "room state does not allow this")
	ErrInvalidTransition = sentinel(KindConflict, "invalid room state transition")
	ErrNotRoomOwner      = sentinel(KindPermission, "not the room owner")
)

// Party errors.
var (
	ErrPartyNotFound   = sentinel(KindNotFound, "party not found")
	ErrPartyFull       = sentinel(KindCapacity, "party is full")
	ErrAlreadyInParty  = sentinel(KindConflict, "already in a party")
	ErrNotInParty      = sentinel(KindNotFound, "not in a party")
	ErrNotPartyLeader  = sentinel(KindPermission, "not the party leader")
	ErrInvitePending   = sentinel(KindConflict, "invite already pending")
	ErrInviteNotFound  = sentinel(KindNotFound, "invite not found")
	ErrInviteExpired   = sentinel(KindTiming, "invite expired")
	ErrInvalidParty    = sentinel(KindValidation, "invalid party parameters")
	ErrPartyNotPublic  = sentinel(KindPermission, "party is not public")
	ErrTargetNotMember = sentinel(KindNotFound, "target is not a party member")
)

// Team errors.
var (
	ErrTeamsDisabled   = sentinel(KindConflict, "teams are not enabled")
	ErrTeamNotFound    = sentinel(KindNotFound, "team not found")
	ErrTeamFull        = sentinel(KindCapacity, "team is full")
	ErrAllTeamsFull    = sentinel(KindCapacity, "no team can take another player")
	ErrAlreadyOnTeam   = sentinel(KindConflict, "already on that team")
	ErrNotOnTeam       = sentinel(KindNotFound, "not on a team")
	ErrSwapDisabled    = sentinel(KindPermission, "team swapping is disabled")
	ErrNotCaptain      = sentinel(KindPermission, "not a captain")
	ErrNotCaptainsTurn = sentinel(KindConflict, "not this captain's turn")
)

// Vote errors.
var (
	ErrVotesDisabled    = sentinel(KindConflict, "voting is not enabled")
	ErrVoteActive       = sentinel(KindConflict, "a vote is already active")
	ErrNoActiveVote     = sentinel(KindNotFound, "no active vote")
	ErrUnknownVoteType  = sentinel(KindNotFound, "unknown vote type")
	ErrDuplicateType    = sentinel(KindConflict, "vote type already registered")
	ErrVoteOnCooldown   = sentinel(KindTiming, "vote type on cooldown")
	ErrCannotInitiate   = sentinel(KindPermission, "not allowed to start this vote")
	ErrCannotVote       = sentinel(KindPermission, "not allowed to vote")
	ErrAlreadyVoted     = sentinel(KindConflict, "already voted")
	ErrInvalidOption    = sentinel(KindValidation, "option index out of range")
	ErrNotEnoughOptions = sentinel(KindValidation, "vote needs at least two options")
	ErrVoteMismatch     = sentinel(KindNotFound, "vote id does not match the active vote")
)

// Connection and request errors.
var (
	ErrUnknownConn  = sentinel(KindNotFound, "unknown connection")
	ErrRateLimited  = sentinel(KindTiming, "rate limited")
	ErrBadRequest   = sentinel(KindValidation, "bad request")
	ErrNoPermission = sentinel(KindPermission, "insufficient permission")
)

// Error decorates a sentinel with a human-readable reason or remaining time.
type Error struct {
	Err       error
	Reason    string
	Remaining time.Duration
}

func (e *Error) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Err, e.Reason)
	case e.Remaining > 0:
		return fmt.Sprintf("%s: %s remaining", e.Err, e.Remaining.Round(time.Millisecond))
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Denied wraps a sentinel with a denial reason.
func Denied(err error, reason string) error {
	if reason == "" {
		return err
	}
	return &Error{Err: err, Reason: reason}
}

// OnCooldown wraps a timing sentinel with the time left before a retry.
func OnCooldown(err error, remaining time.Duration) error {
	return &Error{Err: err, Remaining: remaining}
}

// KindOf returns the category of err, or KindUnknown.
func KindOf(err error) Kind {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// RemainingOf returns the retry-after hint carried by a timing error.
func RemainingOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.Remaining
	}
	return 0
}

// ReasonOf returns the denial reason carried by err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
