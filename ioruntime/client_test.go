package ioruntime

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxcast/actionhost/hosterrors"
	"github.com/boxcast/actionhost/iotypes"
	"github.com/boxcast/actionhost/registry"
)

func newCountingSend() (SendFunc, *int32, chan RenderPacket) {
	var count int32
	ch := make(chan RenderPacket, 64)
	send := func(pkt RenderPacket) error {
		atomic.AddInt32(&count, 1)
		ch <- pkt
		return nil
	}
	return send, &count, ch
}

func newTestComponent(t *testing.T, schema registry.Schema) *Component {
	t.Helper()
	c, err := New(iotypes.InputText, "label", schema, nil, nil, nil)
	require.NoError(t, err)
	return c
}

func TestRenderComponentsSendsOneRenderThenAwaits(t *testing.T) {
	send, count, ch := newCountingSend()
	client := New(send, nil)
	comp := newTestComponent(t, registry.Schema{})

	done := make(chan struct{})
	var values []interface{}
	var renderErr error
	go func() {
		values, renderErr = client.renderComponents([]*Component{comp}, []ValidatorFunc{nil}, nil)
		close(done)
	}()

	var pkt RenderPacket
	select {
	case pkt = <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a render packet")
	}
	assert.Equal(t, "RENDER", pkt.Kind)
	assert.Len(t, pkt.ToRender, 1)

	client.HandleResponse(ResponsePacket{
		InputGroupKey: pkt.InputGroupKey,
		Kind:          KindReturn,
		Values:        json.RawMessage(`["typed value"]`),
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("renderComponents never returned")
	}
	require.NoError(t, renderErr)
	assert.Equal(t, []interface{}{"typed value"}, values)
	assert.Equal(t, int32(1), atomic.LoadInt32(count))
}

func TestHandleSetStateCoalescesIntoOneRender(t *testing.T) {
	send, count, ch := newCountingSend()
	client := New(send, nil)
	a := newTestComponent(t, registry.Schema{})
	b := newTestComponent(t, registry.Schema{})

	done := make(chan struct{})
	go func() {
		_, _ = client.renderComponents([]*Component{a, b}, []ValidatorFunc{nil, nil}, nil)
		close(done)
	}()

	var pkt RenderPacket
	select {
	case pkt = <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected initial render packet")
	}

	// One SET_STATE batch touching both components must produce exactly one
	// additional render, not two.
	client.HandleResponse(ResponsePacket{
		InputGroupKey: pkt.InputGroupKey,
		Kind:          KindSetState,
		Values:        json.RawMessage(`["state-a","state-b"]`),
	})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected the coalesced render")
	}

	select {
	case extra := <-ch:
		t.Fatalf("expected exactly one coalesced render, got an extra one: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}

	client.HandleResponse(ResponsePacket{
		InputGroupKey: pkt.InputGroupKey,
		Kind:          KindReturn,
		Values:        json.RawMessage(`["a","b"]`),
	})
	<-done
	assert.GreaterOrEqual(t, int(atomic.LoadInt32(count)), 2)
}

func TestHandleReturnAggregatesValidatorFailuresDeterministically(t *testing.T) {
	send, _, ch := newCountingSend()
	client := New(send, nil)
	a := newTestComponent(t, registry.Schema{})
	b := newTestComponent(t, registry.Schema{})

	validators := []ValidatorFunc{
		func(interface{}) (string, error) { return "first component invalid", nil },
		func(interface{}) (string, error) { return "", assertErr("validator blew up") },
	}

	done := make(chan struct{})
	go func() {
		_, _ = client.renderComponents([]*Component{a, b}, validators, nil)
		close(done)
	}()

	var pkt RenderPacket
	select {
	case pkt = <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected render packet")
	}

	client.HandleResponse(ResponsePacket{
		InputGroupKey: pkt.InputGroupKey,
		Kind:          KindReturn,
		Values:        json.RawMessage(`["x","y"]`),
	})

	// A failed validation re-renders with the validation message attached,
	// rather than resolving the components.
	var rerender RenderPacket
	select {
	case rerender = <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a re-render carrying the validation message")
	}
	assert.Equal(t, "first component invalid", rerender.ValidationErrorMessage)

	select {
	case <-done:
		t.Fatal("renderComponents should still be awaiting a successful return")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleResponseDropsStaleInputGroupKey(t *testing.T) {
	send, count, ch := newCountingSend()
	client := New(send, nil)
	comp := newTestComponent(t, registry.Schema{})

	go func() { _, _ = client.renderComponents([]*Component{comp}, []ValidatorFunc{nil}, nil) }()
	<-ch

	client.HandleResponse(ResponsePacket{
		InputGroupKey: "some-other-batch",
		Kind:          KindReturn,
		Values:        json.RawMessage(`["ignored"]`),
	})

	select {
	case <-ch:
		t.Fatal("a stale response must not trigger another render")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(count))
}

func TestHandleResponseCanceledFailsAllComponents(t *testing.T) {
	send, _, ch := newCountingSend()
	client := New(send, nil)
	comp := newTestComponent(t, registry.Schema{})

	var wg sync.WaitGroup
	wg.Add(1)
	var retErr error
	go func() {
		defer wg.Done()
		_, retErr = client.renderComponents([]*Component{comp}, []ValidatorFunc{nil}, nil)
	}()

	pkt := <-ch
	client.HandleResponse(ResponsePacket{InputGroupKey: pkt.InputGroupKey, Kind: KindCanceled})
	wg.Wait()
	assert.Error(t, retErr)
}

func TestRenderComponentsRejectsConcurrentCallWithRenderBusy(t *testing.T) {
	send, _, ch := newCountingSend()
	client := New(send, nil)
	first := newTestComponent(t, registry.Schema{})
	second := newTestComponent(t, registry.Schema{})

	done := make(chan struct{})
	go func() {
		_, _ = client.renderComponents([]*Component{first}, []ValidatorFunc{nil}, nil)
		close(done)
	}()

	var pkt RenderPacket
	select {
	case pkt = <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected the first render packet")
	}

	_, err := client.renderComponents([]*Component{second}, []ValidatorFunc{nil}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hosterrors.Sentinel(hosterrors.RenderBusy)))

	client.HandleResponse(ResponsePacket{
		InputGroupKey: pkt.InputGroupKey,
		Kind:          KindReturn,
		Values:        json.RawMessage(`["typed value"]`),
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("renderComponents never returned")
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
