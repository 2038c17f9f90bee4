package protocol

import "github.com/dkeye/Lobby/internal/domain"

// Outbound message types.
const (
	TypeRoomCreated         = "room_created"
	TypeRoomJoined          = "room_joined"
	TypeRoomRemoved         = "room_removed"
	TypeRoomExited          = "room_exited"
	TypeRoomFail            = "room_fail"
	TypeRoomListDelta       = "room_list_delta"
	TypeRoomList            = "room_list"
	TypeRoomState           = "room_state"
	TypeMemberJoined        = "member_joined"
	TypeMemberLeft          = "member_left"
	TypePartySync           = "party_sync"
	TypePartyLeaderChanged  = "party_leader_changed"
	TypePartyInviteReceived = "party_invite_received"
	TypePartyInviteDeclined = "party_invite_declined"
	TypePartyKicked         = "party_kicked"
	TypePartyLeft           = "party_left"
	TypePartyDisbanded      = "party_disbanded"
	TypePartyFail           = "party_fail"
	TypeTeamAssignment      = "team_assignment"
	TypeTeamSync            = "team_sync"
	TypeTeamSwapResult      = "team_swap_result"
	TypeTeamBalanceChanges  = "team_balance_changes"
	TypeTeamFail            = "team_fail"
	TypeVoteStarted         = "vote_started"
	TypeVoteUpdate          = "vote_update"
	TypeVoteEnded           = "vote_ended"
	TypeVoteFail            = "vote_fail"
	TypeChat                = "chat"
	TypeError               = "error"
	TypePong                = "pong"
	TypeWhoAmI              = "whoami"
)

// RoomListDelta operations.
const (
	ListAdd    = "add"
	ListUpdate = "update"
	ListRemove = "remove"
)

type RoomCreated struct {
	Type string          `json:"type"`
	Room domain.RoomInfo `json:"room"`
}

type RoomJoined struct {
	Type    string          `json:"type"`
	Room    domain.RoomInfo `json:"room"`
	Members []domain.ConnID `json:"members"`
	Owner   domain.ConnID   `json:"owner,omitempty"`
}

type RoomRemoved struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"room_id"`
}

type RoomExited struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"room_id"`
	Reason string        `json:"reason,omitempty"`
}

// Fail is the negative acknowledgement shared by every request family.
type Fail struct {
	Type       string  `json:"type"`
	Request    string  `json:"request,omitempty"`
	Code       string  `json:"code"`
	Error      string  `json:"error"`
	RetryAfter float64 `json:"retry_after,omitempty"`
}

type RoomListDelta struct {
	Type string          `json:"type"`
	Op   string          `json:"op"`
	Room domain.RoomInfo `json:"room"`
}

type RoomList struct {
	Type  string            `json:"type"`
	Rooms []domain.RoomInfo `json:"rooms"`
}

type RoomState struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"room_id"`
	From   string        `json:"from"`
	State  string        `json:"state"`
	// Countdown is the seconds left before the match starts, when starting.
	Countdown float64 `json:"countdown,omitempty"`
}

type MemberEvent struct {
	Type string      `json:"type"`
	User domain.User `json:"user"`
}

type PartyMember struct {
	Conn     domain.ConnID `json:"conn"`
	IsLeader bool          `json:"is_leader"`
}

type PartySync struct {
	Type     string               `json:"type"`
	PartyID  domain.PartyID       `json:"party_id"`
	Name     string               `json:"name"`
	MaxSize  int                  `json:"max_size"`
	Leader   domain.ConnID        `json:"leader"`
	Members  []PartyMember        `json:"members"`
	Invited  []domain.ConnID      `json:"invited"`
	Settings domain.PartySettings `json:"settings"`
}

type PartyLeaderChanged struct {
	Type      string         `json:"type"`
	PartyID   domain.PartyID `json:"party_id"`
	OldLeader domain.ConnID  `json:"old_leader"`
	NewLeader domain.ConnID  `json:"new_leader"`
	Reason    string         `json:"reason"`
}

type PartyInviteReceived struct {
	Type      string         `json:"type"`
	PartyID   domain.PartyID `json:"party_id"`
	PartyName string         `json:"party_name"`
	Inviter   domain.ConnID  `json:"inviter"`
	ExpiresIn float64        `json:"expires_in"`
}

type PartyInviteDeclined struct {
	Type    string         `json:"type"`
	PartyID domain.PartyID `json:"party_id"`
	Target  domain.ConnID  `json:"target"`
}

// PartyRemoved covers kicked, left and disbanded, told apart by Type.
type PartyRemoved struct {
	Type    string         `json:"type"`
	PartyID domain.PartyID `json:"party_id"`
	By      domain.ConnID  `json:"by,omitempty"`
}

type TeamMemberView struct {
	Conn    domain.ConnID `json:"conn"`
	Kills   int           `json:"kills"`
	Deaths  int           `json:"deaths"`
	Assists int           `json:"assists"`
	Score   int           `json:"score"`
}

type TeamView struct {
	ID      domain.TeamID    `json:"id"`
	Name    string           `json:"name"`
	Color   string           `json:"color"`
	MaxSize int              `json:"max_size"`
	Members []TeamMemberView `json:"members"`
	Stats   domain.TeamStats `json:"stats"`
}

type TeamAssignment struct {
	Type    string          `json:"type"`
	TeamID  domain.TeamID   `json:"team_id"`
	Name    string          `json:"name"`
	Color   string          `json:"color"`
	Members []domain.ConnID `json:"members"`
}

type TeamSync struct {
	Type  string     `json:"type"`
	Teams []TeamView `json:"teams"`
}

type TeamSwapResult struct {
	Type    string        `json:"type"`
	Success bool          `json:"success"`
	TeamID  domain.TeamID `json:"team_id,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type BalanceMove struct {
	Conn domain.ConnID `json:"conn"`
	From domain.TeamID `json:"from"`
	To   domain.TeamID `json:"to"`
}

type TeamBalanceChanges struct {
	Type  string        `json:"type"`
	Moves []BalanceMove `json:"moves"`
}

type VoteStarted struct {
	Type      string        `json:"type"`
	VoteID    domain.VoteID `json:"vote_id"`
	TypeID    string        `json:"type_id"`
	Initiator domain.ConnID `json:"initiator"`
	Question  string        `json:"question"`
	Options   []string      `json:"options"`
	Duration  float64       `json:"duration"`
}

type VoteUpdate struct {
	Type      string        `json:"type"`
	VoteID    domain.VoteID `json:"vote_id"`
	Tally     []int         `json:"tally"`
	Voted     int           `json:"voted"`
	Eligible  int           `json:"eligible"`
	Remaining float64       `json:"remaining"`
}

type VoteEnded struct {
	Type          string        `json:"type"`
	VoteID        domain.VoteID `json:"vote_id"`
	Passed        bool          `json:"passed"`
	Reason        string        `json:"reason"`
	WinningOption int           `json:"winning_option"`
	Tally         []int         `json:"tally"`
	Participation float64       `json:"participation"`
}

type Chat struct {
	Type    string        `json:"type"`
	Channel string        `json:"channel"`
	From    domain.ConnID `json:"from"`
	Name    string        `json:"name"`
	Text    string        `json:"text"`
}

type Pong struct {
	Type string `json:"type"`
}

type WhoAmI struct {
	Type     string         `json:"type"`
	ID       domain.ConnID  `json:"id"`
	Username string         `json:"username"`
	RoomID   domain.RoomID  `json:"room_id,omitempty"`
	PartyID  domain.PartyID `json:"party_id,omitempty"`
	TeamID   domain.TeamID  `json:"team_id,omitempty"`
}
