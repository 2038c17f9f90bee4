package protocol

import "github.com/dkeye/Lobby/internal/domain"

// FailFor builds the negative acknowledgement for a failed request.
// failType is one of the *_fail types or TypeError.
func FailFor(failType, request string, err error) Fail {
	return Fail{
		Type:       failType,
		Request:    request,
		Code:       domain.KindOf(err).String(),
		Error:      err.Error(),
		RetryAfter: domain.RemainingOf(err).Seconds(),
	}
}

// FailTypeOf picks the negative acknowledgement type for a request.
func FailTypeOf(request string) string {
	switch request {
	case ReqCreateRoom, ReqJoinRoom, ReqExitRoom, ReqStartMatch, ReqPauseMatch, ReqResumeMatch, ReqEndMatch:
		return TypeRoomFail
	case ReqCreateParty, ReqInvitePlayer, ReqRespondInvite, ReqLeaveParty, ReqKickPartyMember, ReqJoinParty:
		return TypePartyFail
	case ReqSwapTeam, ReqPickPlayer, ReqBalanceTeams, ReqShuffleTeams:
		return TypeTeamFail
	case ReqStartVote, ReqCastVote, ReqCancelVote:
		return TypeVoteFail
	default:
		return TypeError
	}
}
