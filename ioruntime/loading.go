package ioruntime

import (
	"log"
	"sync"
)

// LoadingOpts is the caller-supplied shape for Loading.Start/Update. Nil
// fields are left unset (Start) or left unchanged (Update).
type LoadingOpts struct {
	Title        *string
	Description  *string
	ItemsInQueue *int
}

// loadingState is the wire payload a Loading transmits, mirroring
// LoadingOpts but with ItemsCompleted tracked internally rather than
// caller-supplied. It shares the render packet's SEND_IO_CALL envelope,
// distinguished by Kind.
type loadingState struct {
	Kind           string `json:"kind"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	ItemsInQueue   *int   `json:"itemsInQueue,omitempty"`
	ItemsCompleted *int   `json:"itemsCompleted,omitempty"`
}

const loadingKind = "RENDER_LOADING"

// LoadingSendFunc transmits one loading state update, whose Kind is
// RENDER_LOADING. Its parameter type is unexported, so only code in this
// package can supply one; neither the Host Controller nor Context builds a
// Loading, so actions have no loading channel wired to the coordinator.
type LoadingSendFunc func(loadingState) error

// Loading is the side channel for non-interactive progress updates:
// start/update/completeOne, monotone on itemsCompleted and best-effort on
// transmission (a failed send is logged, never returned to the action).
type Loading struct {
	send   LoadingSendFunc
	logger *log.Logger

	mu      sync.Mutex
	started bool
	state   loadingState
}

// NewLoading builds a Loading bound to one transaction's transport.
func NewLoading(send LoadingSendFunc, logger *log.Logger) *Loading {
	return &Loading{send: send, logger: logger}
}

// Start establishes a fresh loading state. If opts.ItemsInQueue is given,
// itemsCompleted is initialized to 0; the state is transmitted
// unconditionally.
func (l *Loading) Start(opts LoadingOpts) {
	l.mu.Lock()
	l.started = true
	l.state = loadingState{Kind: loadingKind}
	if opts.Title != nil {
		l.state.Title = *opts.Title
	}
	if opts.Description != nil {
		l.state.Description = *opts.Description
	}
	if opts.ItemsInQueue != nil {
		n := *opts.ItemsInQueue
		l.state.ItemsInQueue = &n
		zero := 0
		l.state.ItemsCompleted = &zero
	}
	snapshot := l.state
	l.mu.Unlock()
	l.transmit(snapshot)
}

// Update merges opts into the existing state. Called before Start, it logs
// a warning and redirects to Start instead.
func (l *Loading) Update(opts LoadingOpts) {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		if l.logger != nil {
			l.logger.Printf("[WARN] ioruntime: Loading.Update called before Start, redirecting")
		}
		l.Start(opts)
		return
	}
	if opts.Title != nil {
		l.state.Title = *opts.Title
	}
	if opts.Description != nil {
		l.state.Description = *opts.Description
	}
	if opts.ItemsInQueue != nil {
		n := *opts.ItemsInQueue
		l.state.ItemsInQueue = &n
		if l.state.ItemsCompleted == nil {
			zero := 0
			l.state.ItemsCompleted = &zero
		}
	}
	snapshot := l.state
	l.mu.Unlock()
	l.transmit(snapshot)
}

// CompleteOne increments itemsCompleted by one. Meaningful only once
// itemsInQueue has been established; otherwise it logs a warning and
// returns without sending, per the monotone-progress invariant
// (itemsCompleted never decreases).
func (l *Loading) CompleteOne() {
	l.mu.Lock()
	if l.state.ItemsInQueue == nil {
		l.mu.Unlock()
		if l.logger != nil {
			l.logger.Printf("[WARN] ioruntime: Loading.CompleteOne called without itemsInQueue")
		}
		return
	}
	*l.state.ItemsCompleted++
	snapshot := l.state
	l.mu.Unlock()
	l.transmit(snapshot)
}

func (l *Loading) transmit(s loadingState) {
	if l.send == nil {
		return
	}
	if err := l.send(s); err != nil && l.logger != nil {
		l.logger.Printf("[WARN] ioruntime: loading state transmit failed: %v", err)
	}
}
