package core

import (
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// Listeners is an ordered list of handlers owned by the emitting component.
// Handlers fire in registration order; a panicking handler is logged and
// skipped. Not safe for concurrent use; the orchestration loop owns it.
type Listeners[T any] struct {
	handlers []func(T)
}

func (l *Listeners[T]) Add(fn func(T)) {
	l.handlers = append(l.handlers, fn)
}

func (l *Listeners[T]) Emit(v T) {
	for _, fn := range l.handlers {
		safeCall(fn, v)
	}
}

func (l *Listeners[T]) Len() int { return len(l.handlers) }

func (l *Listeners[T]) Clear() { l.handlers = nil }

func safeCall[T any](fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("module", "core.listeners").
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("listener panicked")
		}
	}()
	fn(v)
}
