// Package ioruntime implements the per-transaction IO rendering engine:
// Component, Promise, GroupPromise, Client (the render loop), Loading, and
// the io namespace actions drive. This is the generalized form of the
// per-seq dispatch table in an RPCClient: there, one outstanding
// request was tracked per uint64 seq with a seqHandler; here, one
// outstanding render is tracked per Component with an observer callback
// and a single-assignment return cell.
package ioruntime

import (
	"fmt"
	"log"
	"sync"

	"github.com/boxcast/actionhost/hosterrors"
	"github.com/boxcast/actionhost/iotypes"
	"github.com/boxcast/actionhost/registry"
)

// StateHandler reshapes props in response to an incoming SET_STATE. It
// mirrors an onIncomingState hook: awaited, and its result
// becomes the component's new props.
type StateHandler func(newState interface{}) (interface{}, error)

// RenderInfo is the minimal payload the IO Client serializes for one
// component.
type RenderInfo struct {
	Method iotypes.MethodName
	Label  string
	Props  interface{}
}

// Component is one instance of an IO method within a transaction: a
// schema-typed props/state cell plus a single-assignment return slot. The
// zero value is not usable; construct with New.
type Component struct {
	method iotypes.MethodName
	label  string
	schema registry.Schema
	logger *log.Logger

	mu              sync.Mutex
	props           interface{}
	state           interface{}
	onIncomingState StateHandler
	observer        func()

	returnOnce sync.Once
	returnCh   chan returnResult
	returned   bool
}

type returnResult struct {
	value interface{}
	err   error
}

// New constructs a Component, validating initialProps against schema.Props
// if both are non-nil.
func New(method iotypes.MethodName, label string, schema registry.Schema, initialProps interface{}, onIncomingState StateHandler, logger *log.Logger) (*Component, error) {
	c := &Component{
		method:          method,
		label:           label,
		schema:          schema,
		logger:          logger,
		onIncomingState: onIncomingState,
		returnCh:        make(chan returnResult, 1),
	}

	if initialProps != nil {
		if schema.Props == nil {
			c.props = initialProps
		} else {
			canon, err := schema.Props(initialProps)
			if err != nil {
				return nil, hosterrors.Wrap(hosterrors.RPCSchema, err)
			}
			c.props = canon
		}
	}

	return c, nil
}

// Method returns the component's method name.
func (c *Component) Method() iotypes.MethodName { return c.method }

// GetRenderInfo returns the minimal payload the IO Client serializes: the
// method name, label, and current (possibly nil) props.
func (c *Component) GetRenderInfo() RenderInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RenderInfo{Method: c.method, Label: c.label, Props: c.props}
}

// State returns the component's current (canonical, possibly nil) state.
func (c *Component) State() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetObserver installs the single callback invoked after SetState or
// SetProps. Re-registration replaces the previous callback; it is never a
// subscriber list.
func (c *Component) SetObserver(fn func()) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

// SetState stores rawState as given (the IO Client has already run it
// through schema.State) and — if an onIncomingState handler is registered —
// replaces props with its result before notifying the observer. If rawState
// is non-nil and no handler is registered, SetState logs a diagnostic but
// does not fail.
func (c *Component) SetState(rawState interface{}) error {
	c.mu.Lock()
	if c.returned {
		c.mu.Unlock()
		return nil
	}

	// rawState arrives already canonicalized by the IO Client's wire decode
	// (registry.Schema.State applies at that boundary); SetState just
	// stores it and, if a handler is registered, reshapes props from it.
	c.state = rawState

	handler := c.onIncomingState
	needsWarn := rawState != nil && handler == nil
	c.mu.Unlock()

	if needsWarn && c.logger != nil {
		c.logger.Printf("[WARN] ioruntime: component %s received SET_STATE with no onIncomingState handler", c.label)
	}

	if handler != nil {
		newProps, err := handler(rawState)
		if err != nil {
			return err
		}
		c.SetProps(newProps)
		return nil
	}

	c.mu.Lock()
	obs := c.observer
	c.mu.Unlock()
	if obs != nil {
		obs()
	}
	return nil
}

// SetProps replaces props and invokes the observer.
func (c *Component) SetProps(newProps interface{}) {
	c.mu.Lock()
	c.props = newProps
	obs := c.observer
	c.mu.Unlock()
	if obs != nil {
		obs()
	}
}

// SetReturnValue resolves the return cell with raw exactly once; later
// calls are no-ops. It does not run schema.Returns itself. This realizes the
// "single-resolve" invariant: the underlying channel is written to and
// closed under sync.Once regardless of how many times SetReturnValue is
// invoked.
func (c *Component) SetReturnValue(raw interface{}) {
	// raw has already been through the wire decode and schema.Returns
	// validation by the time it reaches here (see Client.handleReturn);
	// SetReturnValue only owns the single-resolve invariant.
	c.returnOnce.Do(func() {
		c.mu.Lock()
		c.returned = true
		c.mu.Unlock()
		c.returnCh <- returnResult{value: raw}
		close(c.returnCh)
	})
}

// failReturn rejects the return cell with err, exactly once, used when a
// transaction is canceled or the batch assertion fails.
func (c *Component) failReturn(err error) {
	c.returnOnce.Do(func() {
		c.mu.Lock()
		c.returned = true
		c.mu.Unlock()
		c.returnCh <- returnResult{err: err}
		close(c.returnCh)
	})
}

// awaitReturn blocks for the return cell's single resolution.
func (c *Component) awaitReturn() (interface{}, error) {
	r := <-c.returnCh
	return r.value, r.err
}

func (c *Component) String() string {
	return fmt.Sprintf("Component(%s, %q)", c.method, c.label)
}
