package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxcast/actionhost/hosterrors"
	"github.com/boxcast/actionhost/transport"
)

func newUnconnectedDuplex(canCall, canRespond map[MethodName]MethodSchema, handlers map[MethodName]Handler) *Duplex {
	socket := transport.New(time.Second)
	return New(socket, canCall, canRespond, handlers)
}

func TestCallRejectsUnknownMethod(t *testing.T) {
	d := newUnconnectedDuplex(nil, nil, nil)
	_, err := d.Call(context.Background(), MethodName("NOT_CALLABLE"), nil)
	require.Error(t, err)
	he, ok := err.(*hosterrors.Error)
	require.True(t, ok)
	assert.Equal(t, hosterrors.RPCSchema, he.Kind)
}

func TestCallValidatesInputsBeforeSending(t *testing.T) {
	boom := hosterrors.New(hosterrors.RPCSchema, "bad input")
	canCall := map[MethodName]MethodSchema{
		"DO_THING": {Inputs: func(interface{}) (interface{}, error) { return nil, boom }},
	}
	d := newUnconnectedDuplex(canCall, nil, nil)

	_, err := d.Call(context.Background(), "DO_THING", map[string]interface{}{"x": 1})
	require.Error(t, err)
}

func TestCallFailsFastWhenSocketNotOpen(t *testing.T) {
	canCall := map[MethodName]MethodSchema{"DO_THING": {}}
	d := newUnconnectedDuplex(canCall, nil, nil)

	_, err := d.Call(context.Background(), "DO_THING", nil)
	require.Error(t, err)
	he, ok := err.(*hosterrors.Error)
	require.True(t, ok)
	assert.Equal(t, hosterrors.SendFailed, he.Kind)
}

func TestCallWithCanceledContextReturnsError(t *testing.T) {
	// A Duplex with no transport fails at send before it ever waits on ctx,
	// so this does not reach the ctx.Done branch; it only asserts the call
	// surfaces *a* error and never panics when ctx is already done.
	canCall := map[MethodName]MethodSchema{"DO_THING": {}}
	d := newUnconnectedDuplex(canCall, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Call(ctx, "DO_THING", nil)
	require.Error(t, err)
}

func TestHandleCloseRejectsPendingCalls(t *testing.T) {
	d := newUnconnectedDuplex(nil, nil, nil)
	p := &pendingCall{resultCh: make(chan interface{}, 1), errCh: make(chan error, 1)}
	d.mu.Lock()
	d.pending["call-1"] = p
	d.mu.Unlock()

	d.HandleClose(1006, "abnormal")

	select {
	case err := <-p.errCh:
		he, ok := err.(*hosterrors.Error)
		require.True(t, ok)
		assert.Equal(t, hosterrors.TransportClosed, he.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected pending call to be rejected")
	}
}

func TestHandleMessageIgnoresGarbageBytes(t *testing.T) {
	d := newUnconnectedDuplex(nil, nil, nil)
	assert.NotPanics(t, func() {
		d.HandleMessage([]byte("not valid msgpack"))
	})
}

func TestServeUnknownMethodDoesNotPanic(t *testing.T) {
	// serve() is only reachable through HandleMessage, and replying
	// requires a live socket; this test only confirms an unregistered
	// method never reaches a handler panic path.
	d := newUnconnectedDuplex(nil, map[MethodName]MethodSchema{}, map[MethodName]Handler{})
	assert.NotPanics(t, func() {
		d.serve(envelope{CallID: "x", Method: "UNKNOWN", Kind: kindCall})
	})
}
