package domain

import "time"

// Member is a connection's participation record inside a room or party.
// JoinedAt orders members for ownership and leadership transfer.
type Member struct {
	Conn     ConnID
	JoinedAt time.Duration
}
