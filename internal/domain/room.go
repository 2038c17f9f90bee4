package domain

import "time"

// RoomState is the lifecycle phase of a room.
type RoomState int

const (
	StateLobby RoomState = iota
	StateStarting
	StatePlaying
	StatePaused
	StateEnded
)

func (s RoomState) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateStarting:
		return "starting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// InMatch reports whether a match is underway.
func (s RoomState) InMatch() bool {
	return s == StatePlaying || s == StatePaused
}

// Room is the registry-owned metadata of a room. Membership lives with the
// registry; this struct carries no transport.
type Room struct {
	ID          RoomID
	Name        RoomName
	MaxPlayers  int
	IsPrivate   bool
	AccessToken string
	CustomData  map[string]string
	// Owner is empty for server-owned rooms.
	Owner       ConnID
	ServerOwned bool
	CreatedAt   time.Time
}

// RoomInfo is the public listing entry of a room.
type RoomInfo struct {
	ID             RoomID            `json:"id"`
	Name           RoomName          `json:"name"`
	CurrentPlayers int               `json:"current_players"`
	ReservedSlots  int               `json:"reserved_slots"`
	MaxPlayers     int               `json:"max_players"`
	IsPrivate      bool              `json:"is_private"`
	State          string            `json:"state"`
	CustomData     map[string]string `json:"custom_data,omitempty"`
}
