package ioruntime

import "github.com/boxcast/actionhost/hosterrors"

// GetValue maps a component's canonical raw return into the typed value an
// action actually wants (e.g. pulling .Value out of a registry.SelectOption).
type GetValue func(raw interface{}) (interface{}, error)

// ValidatorFunc is a post-return validator: a non-empty return rejects the
// batch, surfacing the string to the operator as validationErrorMessage and
// triggering a re-render. A non-nil error instead signals the validator
// itself malfunctioned (distinct from the component failing validation).
type ValidatorFunc func(typed interface{}) (string, error)

// Promise is a deferred handle over exactly one Component. It is produced
// by an io method and consumed by exactly one Await (directly, or inside a
// GroupPromise); awaiting it twice panics, the same way a double-closed
// channel would.
type Promise struct {
	client    *Client
	component *Component
	getValue  GetValue
	validator ValidatorFunc
	exclusive bool
	consumed  bool
}

func newPromise(client *Client, component *Component, getValue GetValue, exclusive bool) *Promise {
	if getValue == nil {
		getValue = func(raw interface{}) (interface{}, error) { return raw, nil }
	}
	return &Promise{client: client, component: component, getValue: getValue, exclusive: exclusive}
}

// Validate attaches a post-return validator. Returns the same Promise for
// chaining, for a fluent call style
// (io.input.text(...).validate(...)).
func (p *Promise) Validate(fn ValidatorFunc) *Promise {
	p.validator = fn
	return p
}

// IsExclusive reports whether p wraps a full-screen-style component (e.g.
// CONFIRM) that must never appear inside a GroupPromise.
func (p *Promise) IsExclusive() bool { return p.exclusive }

// Await drives a single-element render and returns the typed value.
func (p *Promise) Await() (interface{}, error) {
	if p.consumed {
		panic("ioruntime: Promise awaited twice")
	}
	p.consumed = true

	raws, err := p.client.renderComponents(
		[]*Component{p.component},
		[]ValidatorFunc{p.validator},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return p.getValue(raws[0])
}

// GroupPromise holds an ordered, non-empty tuple of Promises, none
// exclusive. Construct with Group.
type GroupPromise struct {
	client    *Client
	promises  []*Promise
	validator ValidatorFunc
}

// Group builds a GroupPromise from promises, preserving order. It fails
// with hosterrors.GroupContainsExclusive if any element is exclusive, and
// with a hosterrors.RPCSchema error if promises is empty or spans more than
// one Client (i.e. more than one transaction) — neither produces any socket
// traffic.
func Group(promises ...*Promise) (*GroupPromise, error) {
	if len(promises) == 0 {
		return nil, hosterrors.New(hosterrors.RPCSchema, "group must contain at least one component")
	}
	client := promises[0].client
	for _, p := range promises {
		if p.exclusive {
			return nil, hosterrors.New(hosterrors.GroupContainsExclusive, "exclusive promise cannot be grouped")
		}
		if p.client != client {
			return nil, hosterrors.New(hosterrors.RPCSchema, "grouped promises must belong to the same transaction")
		}
	}
	return &GroupPromise{client: client, promises: promises}, nil
}

// Validate attaches a group-level validator, run after every per-component
// validator passes.
func (g *GroupPromise) Validate(fn ValidatorFunc) *GroupPromise {
	g.validator = fn
	return g
}

// Await drives one render of every component in the group and returns
// their typed values in the same order the group was constructed with.
func (g *GroupPromise) Await() ([]interface{}, error) {
	components := make([]*Component, len(g.promises))
	validators := make([]ValidatorFunc, len(g.promises))
	for i, p := range g.promises {
		if p.consumed {
			panic("ioruntime: Promise awaited twice")
		}
		p.consumed = true
		components[i] = p.component
		validators[i] = p.validator
	}

	raws, err := g.client.renderComponents(components, validators, g.validator)
	if err != nil {
		return nil, err
	}

	out := make([]interface{}, len(g.promises))
	for i, p := range g.promises {
		v, err := p.getValue(raws[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
