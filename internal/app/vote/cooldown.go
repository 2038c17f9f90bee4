package vote

import (
	"time"

	"github.com/dkeye/Lobby/internal/domain"
)

type playerKey struct {
	conn   domain.ConnID
	typeID string
}

// Cooldowns tracks remaining time per vote type and per (player, type).
// Entries disappear when they reach zero.
type Cooldowns struct {
	global map[string]time.Duration
	player map[playerKey]time.Duration
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{
		global: make(map[string]time.Duration),
		player: make(map[playerKey]time.Duration),
	}
}

// Start sets the room-wide cooldown of typeID, keeping a longer one.
func (c *Cooldowns) Start(typeID string, d time.Duration) {
	if d > c.global[typeID] {
		c.global[typeID] = d
	}
}

func (c *Cooldowns) StartPlayer(conn domain.ConnID, typeID string, d time.Duration) {
	k := playerKey{conn, typeID}
	if d > c.player[k] {
		c.player[k] = d
	}
}

// Remaining is the longer of the global and the player's cooldown.
func (c *Cooldowns) Remaining(typeID string, conn domain.ConnID) time.Duration {
	return max(c.global[typeID], c.player[playerKey{conn, typeID}])
}

func (c *Cooldowns) Update(dt time.Duration) {
	for k, left := range c.global {
		if left -= dt; left <= 0 {
			delete(c.global, k)
		} else {
			c.global[k] = left
		}
	}
	for k, left := range c.player {
		if left -= dt; left <= 0 {
			delete(c.player, k)
		} else {
			c.player[k] = left
		}
	}
}

func (c *Cooldowns) RemovePlayer(conn domain.ConnID) {
	for k := range c.player {
		if k.conn == conn {
			delete(c.player, k)
		}
	}
}

func (c *Cooldowns) Clear() {
	clear(c.global)
	clear(c.player)
}

func (c *Cooldowns) Len() int { return len(c.global) + len(c.player) }
