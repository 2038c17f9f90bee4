// Package core holds the contracts between the orchestration core and its
// collaborators. Nothing here touches a concrete transport.
package core

import "github.com/dkeye/Lobby/internal/domain"

//go:generate mockgen -source=connection.go -destination=mocks/mock_connection.go -package=mocks

// Frame is an encoded outbound message.
type Frame []byte

// Connection abstracts a peer's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type Connection interface {
	ID() domain.ConnID
	// TrySend must not block; a full or closed peer returns an error.
	TrySend(Frame) error
	Close()
}

// Notifier delivers outbound notifications. Delivery is fire-and-forget.
type Notifier interface {
	Send(to domain.ConnID, msg any)
	Broadcast(to []domain.ConnID, msg any)
}
