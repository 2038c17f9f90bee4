package domain

import "strconv"

// ConnID identifies a live network connection. It is the join key between
// rooms, parties, teams and votes.
type ConnID string

type (
	RoomID  uint32
	PartyID uint32
	TeamID  uint32
	VoteID  uint32
)

type RoomName string

func (id RoomID) String() string  { return strconv.FormatUint(uint64(id), 10) }
func (id PartyID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id TeamID) String() string  { return strconv.FormatUint(uint64(id), 10) }
func (id VoteID) String() string  { return strconv.FormatUint(uint64(id), 10) }
