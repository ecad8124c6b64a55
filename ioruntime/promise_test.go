package ioruntime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxcast/actionhost/hosterrors"
	"github.com/boxcast/actionhost/iotypes"
	"github.com/boxcast/actionhost/registry"
)

func newTestPromise(t *testing.T, client *Client, exclusive bool) *Promise {
	t.Helper()
	c, err := New(iotypes.InputText, "label", registry.Schema{}, nil, nil, nil)
	require.NoError(t, err)
	return newPromise(client, c, nil, exclusive)
}

func TestGroupRejectsEmpty(t *testing.T) {
	_, err := Group()
	require.Error(t, err)
	he := err.(*hosterrors.Error)
	assert.Equal(t, hosterrors.RPCSchema, he.Kind)
}

func TestGroupRejectsExclusiveMember(t *testing.T) {
	client := New(func(RenderPacket) error { return nil }, nil)
	a := newTestPromise(t, client, false)
	b := newTestPromise(t, client, true)

	_, err := Group(a, b)
	require.Error(t, err)
	he := err.(*hosterrors.Error)
	assert.Equal(t, hosterrors.GroupContainsExclusive, he.Kind)
}

func TestGroupRejectsPromisesFromDifferentClients(t *testing.T) {
	a := newTestPromise(t, New(func(RenderPacket) error { return nil }, nil), false)
	b := newTestPromise(t, New(func(RenderPacket) error { return nil }, nil), false)

	_, err := Group(a, b)
	require.Error(t, err)
	he := err.(*hosterrors.Error)
	assert.Equal(t, hosterrors.RPCSchema, he.Kind)
}

func TestAwaitTwicePanics(t *testing.T) {
	client := New(func(pkt RenderPacket) error { return nil }, nil)
	p := newTestPromise(t, client, false)
	p.consumed = true

	assert.PanicsWithValue(t, "ioruntime: Promise awaited twice", func() {
		_, _ = p.Await()
	})
}

func TestGroupAwaitTwicePanics(t *testing.T) {
	client := New(func(pkt RenderPacket) error { return nil }, nil)
	a := newTestPromise(t, client, false)
	g, err := Group(a)
	require.NoError(t, err)
	a.consumed = true

	assert.PanicsWithValue(t, "ioruntime: Promise awaited twice", func() {
		_, _ = g.Await()
	})
}
