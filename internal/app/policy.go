package app

import (
	"github.com/dkeye/Lobby/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

func (a BackpressureAction) String() string {
	switch a {
	case MarkSlow:
		return "mark_slow"
	case KickMember:
		return "kick"
	case DropFrame:
		return "drop"
	default:
		return "none"
	}
}

// Policy decides what happens to a peer whose outbound buffer is full.
// drops counts consecutive failed sends to that peer.
type Policy interface {
	OnBackPressure(conn core.Connection, drops int) BackpressureAction
}

// SimplePolicy drops frames for a slow peer and kicks it once it has
// missed MaxDrops frames in a row. Zero MaxDrops kicks on the first miss.
type SimplePolicy struct {
	MaxDrops int
}

func (p SimplePolicy) OnBackPressure(_ core.Connection, drops int) BackpressureAction {
	if drops > p.MaxDrops {
		return KickMember
	}
	return DropFrame
}
