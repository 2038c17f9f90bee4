// Package protocol defines the JSON messages exchanged with clients. Every
// message carries a "type" discriminator.
package protocol

// Inbound request types.
const (
	ReqCreateRoom      = "create_room"
	ReqJoinRoom        = "join_room"
	ReqExitRoom        = "exit_room"
	ReqListRooms       = "list_rooms"
	ReqCreateParty     = "create_party"
	ReqInvitePlayer    = "invite_player"
	ReqRespondInvite   = "respond_invite"
	ReqLeaveParty      = "leave_party"
	ReqKickPartyMember = "kick_party_member"
	ReqJoinParty       = "join_party"
	ReqSwapTeam        = "swap_team"
	ReqPickPlayer      = "pick_player"
	ReqBalanceTeams    = "balance_teams"
	ReqShuffleTeams    = "shuffle_teams"
	ReqStartVote       = "start_vote"
	ReqCastVote        = "cast_vote"
	ReqCancelVote      = "cancel_vote"
	ReqStartMatch      = "start_match"
	ReqPauseMatch      = "pause_match"
	ReqResumeMatch     = "resume_match"
	ReqEndMatch        = "end_match"
	ReqChat            = "chat"
	ReqRename          = "rename"
	ReqWhoAmI          = "whoami"
	ReqPing            = "ping"
)

// Envelope is decoded first to route a request by type.
type Envelope struct {
	Type string `json:"type"`
}

type CreateRoomRequest struct {
	Name        string            `json:"name" validate:"required,max=64"`
	MaxPlayers  int               `json:"max_players" validate:"gte=0"`
	IsPrivate   bool              `json:"is_private"`
	AccessToken string            `json:"access_token,omitempty" validate:"max=128"`
	CustomData  map[string]string `json:"custom_data,omitempty" validate:"max=32"`
}

// JoinRoomRequest addresses a room by id or by name.
type JoinRoomRequest struct {
	RoomID      uint32 `json:"room_id" validate:"required_without=Name"`
	Name        string `json:"name" validate:"required_without=RoomID,max=64"`
	AccessToken string `json:"access_token,omitempty" validate:"max=128"`
}

type CreatePartyRequest struct {
	Name    string `json:"name" validate:"max=64"`
	MaxSize int    `json:"max_size" validate:"gte=0"`
}

type InvitePlayerRequest struct {
	PartyID uint32 `json:"party_id" validate:"required"`
	Target  string `json:"target" validate:"required"`
}

type RespondInviteRequest struct {
	PartyID uint32 `json:"party_id" validate:"required"`
	Accept  bool   `json:"accept"`
}

type KickPartyMemberRequest struct {
	PartyID uint32 `json:"party_id" validate:"required"`
	Target  string `json:"target" validate:"required"`
}

type JoinPartyRequest struct {
	PartyID uint32 `json:"party_id" validate:"required"`
}

type SwapTeamRequest struct {
	TeamID uint32 `json:"team_id" validate:"required"`
}

type PickPlayerRequest struct {
	Target string `json:"target" validate:"required"`
}

type StartVoteRequest struct {
	TypeID     string            `json:"type_id" validate:"required,max=64"`
	CustomData map[string]string `json:"custom_data,omitempty" validate:"max=16"`
}

type CastVoteRequest struct {
	VoteID      uint32 `json:"vote_id" validate:"required"`
	OptionIndex int    `json:"option_index" validate:"gte=0"`
}

type CancelVoteRequest struct {
	VoteID uint32 `json:"vote_id" validate:"required"`
}

// ChatRequest targets the sender's room, party or team.
type ChatRequest struct {
	Channel string `json:"channel" validate:"oneof=room party team"`
	Text    string `json:"text" validate:"required,max=512"`
}

type RenameRequest struct {
	Name string `json:"name" validate:"required,max=36"`
}
