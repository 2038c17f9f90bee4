// Package coretest provides test doubles for core contracts.
package coretest

import "github.com/dkeye/Lobby/internal/domain"

// Sent is one recorded delivery.
type Sent struct {
	To  domain.ConnID
	Msg any
}

// Recorder is a Notifier that keeps every delivery in order.
type Recorder struct {
	Sent []Sent
}

func (r *Recorder) Send(to domain.ConnID, msg any) {
	r.Sent = append(r.Sent, Sent{To: to, Msg: msg})
}

func (r *Recorder) Broadcast(to []domain.ConnID, msg any) {
	for _, c := range to {
		r.Send(c, msg)
	}
}

// To returns the messages delivered to conn.
func (r *Recorder) To(conn domain.ConnID) []any {
	var out []any
	for _, s := range r.Sent {
		if s.To == conn {
			out = append(out, s.Msg)
		}
	}
	return out
}

func (r *Recorder) Reset() { r.Sent = nil }

// Last returns the most recent message of type T sent to conn.
func Last[T any](r *Recorder, conn domain.ConnID) (T, bool) {
	var zero T
	for i := len(r.Sent) - 1; i >= 0; i-- {
		if r.Sent[i].To != conn {
			continue
		}
		if m, ok := r.Sent[i].Msg.(T); ok {
			return m, true
		}
	}
	return zero, false
}

// Count returns how many messages of type T were delivered to conn.
func Count[T any](r *Recorder, conn domain.ConnID) int {
	n := 0
	for _, s := range r.Sent {
		if s.To != conn {
			continue
		}
		if _, ok := s.Msg.(T); ok {
			n++
		}
	}
	return n
}
