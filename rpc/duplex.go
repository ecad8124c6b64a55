// Package rpc implements the duplex, schema-validated RPC multiplex
// request/response multiplex over a single connection. It generalizes the
// RPCClient pattern found in hashicorp/serf's client package: where that keyed
// pending calls by an atomically-incremented uint64 seq and decoded
// msgpack headers straight off a buffered TCP reader, Duplex keys pending
// calls by a go-uuid string callId and frames each envelope independently
// through a go-msgpack codec, handing the resulting bytes to a
// transport.Socket instead of a bufio.Writer.
package rpc

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-msgpack/codec"
	uuid "github.com/hashicorp/go-uuid"

	"github.com/boxcast/actionhost/hosterrors"
	"github.com/boxcast/actionhost/transport"
)

// Validator canonicalizes a decoded msgpack value, or rejects it.
type Validator func(v interface{}) (interface{}, error)

// MethodSchema is the {inputs, returns} validator pair for one RPC method.
type MethodSchema struct {
	Inputs  Validator
	Returns Validator
}

// Handler answers an inbound call for one method.
type Handler func(ctx context.Context, inputs interface{}) (interface{}, error)

var msgpackHandle = &codec.MsgpackHandle{RawToString: true, WriteExt: true}

type pendingCall struct {
	resultCh chan interface{}
	errCh    chan error
}

// Duplex is constructed with a canCall schema map (methods this side may
// invoke), a canRespondTo schema map (methods the other side may invoke on
// us) and a handler table keyed by the methods in canRespondTo.
type Duplex struct {
	socket      *transport.Socket
	canCall     map[MethodName]MethodSchema
	canRespond  map[MethodName]MethodSchema
	handlers    map[MethodName]Handler

	mu      sync.Mutex
	pending map[string]*pendingCall
	closed  bool
}

// New builds a Duplex bound to socket. It does not install any socket
// handler itself: the caller wires HandleMessage and HandleClose into the
// Socket's Handler.
func New(socket *transport.Socket, canCall, canRespondTo map[MethodName]MethodSchema, handlers map[MethodName]Handler) *Duplex {
	return &Duplex{
		socket:     socket,
		canCall:    canCall,
		canRespond: canRespondTo,
		handlers:   handlers,
		pending:    make(map[string]*pendingCall),
	}
}

// HandleMessage feeds one inbound Socket message to the duplex. Wire this
// as the Socket's Handler.OnMessage.
func (d *Duplex) HandleMessage(b []byte) {
	var env envelope
	dec := codec.NewDecoderBytes(b, msgpackHandle)
	if err := dec.Decode(&env); err != nil {
		return
	}

	switch env.Kind {
	case kindResponse, kindError:
		d.resolvePending(env)
	case kindCall:
		go d.serve(env)
	}
}

// HandleClose rejects every pending call with TRANSPORT_CLOSED. Wire this
// as the Socket's Handler.OnClose.
func (d *Duplex) HandleClose(int, string) {
	d.mu.Lock()
	pending := d.pending
	d.pending = make(map[string]*pendingCall)
	d.closed = true
	d.mu.Unlock()

	for _, p := range pending {
		p.errCh <- hosterrors.New(hosterrors.TransportClosed, "socket closed")
	}
}

func (d *Duplex) resolvePending(env envelope) {
	d.mu.Lock()
	p, ok := d.pending[env.CallID]
	if ok {
		delete(d.pending, env.CallID)
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	if env.Kind == kindError {
		p.errCh <- hosterrors.New(hosterrors.RPCSchema, env.Error)
		return
	}

	schema, hasSchema := d.lookupCallSchema(env.Method)
	result := env.Payload
	if hasSchema && schema.Returns != nil {
		canon, err := schema.Returns(env.Payload)
		if err != nil {
			p.errCh <- hosterrors.Wrap(hosterrors.RPCSchema, err)
			return
		}
		result = canon
	}
	p.resultCh <- result
}

func (d *Duplex) lookupCallSchema(m MethodName) (MethodSchema, bool) {
	s, ok := d.canCall[m]
	return s, ok
}

func (d *Duplex) serve(env envelope) {
	schema, ok := d.canRespond[env.Method]
	handler, hasHandler := d.handlers[env.Method]
	if !ok || !hasHandler {
		d.reply(env.CallID, nil, fmt.Sprintf("unknown method %q", env.Method))
		return
	}

	inputs := env.Payload
	if schema.Inputs != nil {
		canon, err := schema.Inputs(env.Payload)
		if err != nil {
			d.reply(env.CallID, nil, err.Error())
			return
		}
		inputs = canon
	}

	result, err := handler(context.Background(), inputs)
	if err != nil {
		d.reply(env.CallID, nil, err.Error())
		return
	}
	if schema.Returns != nil {
		if _, err := schema.Returns(result); err != nil {
			d.reply(env.CallID, nil, err.Error())
			return
		}
	}
	d.reply(env.CallID, result, "")
}

func (d *Duplex) reply(callID string, result interface{}, errMsg string) {
	kind := kindResponse
	if errMsg != "" {
		kind = kindError
	}
	_ = d.send(envelope{CallID: callID, Kind: kind, Payload: result, Error: errMsg})
}

// Call validates inputs, sends a call envelope, and blocks for the
// matching response. It returns RPC_SCHEMA if inputs fail validation,
// TRANSPORT_CLOSED if the socket closes first, or ctx's error if ctx is
// done first.
func (d *Duplex) Call(ctx context.Context, method MethodName, inputs interface{}) (interface{}, error) {
	schema, ok := d.canCall[method]
	if !ok {
		return nil, hosterrors.New(hosterrors.RPCSchema, fmt.Sprintf("%q is not a callable method", method))
	}
	if schema.Inputs != nil {
		canon, err := schema.Inputs(inputs)
		if err != nil {
			return nil, hosterrors.Wrap(hosterrors.RPCSchema, err)
		}
		inputs = canon
	}

	callID, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}

	p := &pendingCall{resultCh: make(chan interface{}, 1), errCh: make(chan error, 1)}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, hosterrors.New(hosterrors.TransportClosed, "duplex closed")
	}
	d.pending[callID] = p
	d.mu.Unlock()

	if err := d.send(envelope{CallID: callID, Kind: kindCall, Method: method, Payload: inputs}); err != nil {
		d.mu.Lock()
		delete(d.pending, callID)
		d.mu.Unlock()
		return nil, err
	}

	select {
	case res := <-p.resultCh:
		return res, nil
	case err := <-p.errCh:
		return nil, err
	case <-ctx.Done():
		d.mu.Lock()
		delete(d.pending, callID)
		d.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (d *Duplex) send(env envelope) error {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, msgpackHandle)
	if err := enc.Encode(&env); err != nil {
		return fmt.Errorf("rpc: encode: %w", err)
	}
	return d.socket.Send(buf.Bytes())
}
