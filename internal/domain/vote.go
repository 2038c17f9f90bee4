package domain

import "time"

// TieResolution picks a winner among options sharing the top count.
type TieResolution int

const (
	TieFail TieResolution = iota
	TieFirstOption
	TieLastOption
	TieRandom
	TieInitiatorChoice
)

func (t TieResolution) String() string {
	switch t {
	case TieFail:
		return "fail"
	case TieFirstOption:
		return "first_option"
	case TieLastOption:
		return "last_option"
	case TieRandom:
		return "random"
	case TieInitiatorChoice:
		return "initiator_choice"
	default:
		return "unknown"
	}
}

// ParseTieResolution maps a config string to a TieResolution.
func ParseTieResolution(s string) (TieResolution, bool) {
	for t := TieFail; t <= TieInitiatorChoice; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return TieFail, false
}

type EndReason string

const (
	EndTimerExpired  EndReason = "timer_expired"
	EndAllVoted      EndReason = "all_voted"
	EndCancelled     EndReason = "cancelled"
	EndInitiatorLeft EndReason = "initiator_left"
	EndStateChanged  EndReason = "state_changed"
	EndRoomClosed    EndReason = "room_closed"
)

// Forced reports whether the vote was ended from outside rather than resolved.
func (r EndReason) Forced() bool {
	return r != EndTimerExpired && r != EndAllVoted
}

// NoWinner marks a result without a winning option.
const NoWinner = -1

type ActiveVote struct {
	ID         VoteID
	TypeID     string
	Initiator  ConnID
	Question   string
	Options    []string
	CustomData map[string]string
	StartTime  time.Time
	Duration   time.Duration
	Elapsed    time.Duration
	// Votes maps a voter to an option index in [0, len(Options)).
	Votes map[ConnID]int
}

func (v *ActiveVote) Remaining() time.Duration {
	if v.Elapsed >= v.Duration {
		return 0
	}
	return v.Duration - v.Elapsed
}

// Tally counts votes per option.
func (v *ActiveVote) Tally() []int {
	out := make([]int, len(v.Options))
	for _, idx := range v.Votes {
		out[idx]++
	}
	return out
}

type VoteResult struct {
	VoteID        VoteID
	TypeID        string
	Initiator     ConnID
	Passed        bool
	Reason        EndReason
	WinningOption int
	Tally         []int
	Participation float64
	Eligible      int
	Cast          int
	CustomData    map[string]string
}
