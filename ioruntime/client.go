package ioruntime

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/hashicorp/go-multierror"
	uuid "github.com/hashicorp/go-uuid"

	"github.com/boxcast/actionhost/codec"
	"github.com/boxcast/actionhost/hosterrors"
)

// Client is the per-transaction render loop ("IO Client"). It
// owns exactly one render attempt at a time — renderComponents generalizes
// a genericRPC-style call (one seq, one pending response, one timeout
// path) to one inputGroupKey scoping a whole batch of components across
// possibly several RENDER/SET_STATE round trips before a RETURN lands.
type Client struct {
	send   SendFunc
	logger *log.Logger

	mu                sync.Mutex
	isCanceled        bool
	rendering         bool
	inSendLoop        bool
	suspendRender     bool
	needsRerender     bool
	currentKey        string
	components        []*Component
	validators        []ValidatorFunc
	groupValidator    ValidatorFunc
	validationMessage string
	batchReturned     bool
}

// New builds a Client that transmits render packets through send.
func New(send SendFunc, logger *log.Logger) *Client {
	return &Client{send: send, logger: logger}
}

// renderComponents drives one render/await cycle for a batch of components.
func (c *Client) renderComponents(components []*Component, validators []ValidatorFunc, groupValidator ValidatorFunc) ([]interface{}, error) {
	c.mu.Lock()
	if c.isCanceled {
		c.mu.Unlock()
		return nil, hosterrors.New(hosterrors.TransactionClosed, "transaction closed")
	}
	if c.rendering {
		c.mu.Unlock()
		return nil, hosterrors.New(hosterrors.RenderBusy, "a render is already in progress on this client")
	}

	key, err := uuid.GenerateUUID()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	c.rendering = true
	c.currentKey = key
	c.components = components
	c.validators = validators
	c.groupValidator = groupValidator
	c.validationMessage = ""
	c.batchReturned = false

	for _, comp := range components {
		comp.SetObserver(c.triggerRender)
	}
	c.mu.Unlock()

	if err := c.render(); err != nil {
		c.mu.Lock()
		c.rendering = false
		c.mu.Unlock()
		return nil, err
	}

	values := make([]interface{}, len(components))
	for i, comp := range components {
		v, err := comp.awaitReturn()
		if err != nil {
			c.mu.Lock()
			c.rendering = false
			c.mu.Unlock()
			return nil, err
		}
		values[i] = v
	}

	c.mu.Lock()
	c.rendering = false
	c.mu.Unlock()
	return values, nil
}

// triggerRender is installed as every component's observer, firing on
// external state/prop writes. It coalesces reentrant
// calls — a send already in flight, or a batch of components being updated
// together inside handleSetState — into a single outbound RENDER instead
// of one per component, the same way a microtask-queued render would in
// the source this is generalized from.
func (c *Client) triggerRender() {
	c.mu.Lock()
	if c.inSendLoop || c.suspendRender {
		c.needsRerender = true
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	_ = c.render()
}

func (c *Client) render() error {
	c.mu.Lock()
	if c.isCanceled {
		c.mu.Unlock()
		return hosterrors.New(hosterrors.TransactionClosed, "transaction closed")
	}
	c.inSendLoop = true
	key := c.currentKey
	msg := c.validationMessage
	components := c.components
	c.mu.Unlock()

	toRender := make([]RenderedComponent, len(components))
	for i, comp := range components {
		info := comp.GetRenderInfo()
		var raw json.RawMessage
		var meta codec.Meta
		if info.Props != nil {
			var err error
			raw, meta, err = codec.Encode(info.Props)
			if err != nil {
				c.mu.Lock()
				c.inSendLoop = false
				c.mu.Unlock()
				return err
			}
		}
		toRender[i] = RenderedComponent{Method: info.Method, Label: info.Label, Props: raw, Meta: meta}
	}

	packetID, err := uuid.GenerateUUID()
	if err != nil {
		c.mu.Lock()
		c.inSendLoop = false
		c.mu.Unlock()
		return err
	}

	pkt := RenderPacket{
		ID:                     packetID,
		InputGroupKey:          key,
		ToRender:               toRender,
		ValidationErrorMessage: msg,
		Kind:                   "RENDER",
	}

	sendErr := c.send(pkt)

	c.mu.Lock()
	c.inSendLoop = false
	again := c.needsRerender
	c.needsRerender = false
	c.mu.Unlock()

	if sendErr != nil {
		return hosterrors.Wrap(hosterrors.SendFailed, sendErr)
	}
	if again {
		return c.render()
	}
	return nil
}

// HandleResponse processes one IO_RESPONSE for this client's transaction.
// The Host Controller routes envelopes here by transactionId.
func (c *Client) HandleResponse(resp ResponsePacket) {
	c.mu.Lock()
	if resp.InputGroupKey != "" && resp.InputGroupKey != c.currentKey {
		c.mu.Unlock()
		return // stale batch
	}
	if c.isCanceled || c.batchReturned {
		c.mu.Unlock()
		return
	}

	if resp.Kind == KindCanceled {
		c.isCanceled = true
		comps := c.components
		c.mu.Unlock()
		for _, comp := range comps {
			comp.failReturn(hosterrors.New(hosterrors.Canceled, "transaction canceled"))
		}
		return
	}

	components := c.components
	validators := c.validators
	groupValidator := c.groupValidator
	c.mu.Unlock()

	if len(resp.Values) == 0 && resp.Kind != KindSetState {
		resp.Values = json.RawMessage("[]")
	}
	decoded, err := codec.Decode(resp.Values, resp.ValuesMeta)
	if err != nil {
		c.protocolMismatch(components, err)
		return
	}
	values, ok := decoded.([]interface{})
	if decoded == nil {
		values = nil
	} else if !ok {
		c.protocolMismatch(components, nil)
		return
	}
	if len(values) != len(components) {
		c.protocolMismatch(components, nil)
		return
	}

	switch resp.Kind {
	case KindSetState:
		c.handleSetState(components, values)
	case KindReturn:
		c.handleReturn(components, validators, groupValidator, values)
	}
}

func (c *Client) protocolMismatch(components []*Component, cause error) {
	c.mu.Lock()
	c.isCanceled = true
	c.mu.Unlock()
	err := hosterrors.Wrap(hosterrors.ProtocolMismatch, cause)
	if cause == nil {
		err = hosterrors.New(hosterrors.ProtocolMismatch, "response values length does not match rendered components")
	}
	for _, comp := range components {
		comp.failReturn(err)
	}
}

// handleSetState applies one SET_STATE batch. Every changed component's
// observer fires triggerRender as it's set, but suspendRender holds those
// off so the batch produces at most one outbound RENDER, issued once after
// the whole batch has been applied rather than once per component.
func (c *Client) handleSetState(components []*Component, values []interface{}) {
	c.mu.Lock()
	c.suspendRender = true
	c.mu.Unlock()

	changed := false
	for i, comp := range components {
		canon := values[i]
		if comp.schema.State != nil {
			v, err := comp.schema.State(values[i])
			if err != nil {
				c.mu.Lock()
				c.suspendRender = false
				c.mu.Unlock()
				c.protocolMismatch(components, err)
				return
			}
			canon = v
		}
		if !stateEqual(comp.State(), canon) {
			if err := comp.SetState(canon); err != nil && c.logger != nil {
				c.logger.Printf("[ERR] ioruntime: component %s state handler: %v", comp, err)
			}
			changed = true
		}
	}

	c.mu.Lock()
	c.suspendRender = false
	rerender := changed || c.needsRerender
	c.needsRerender = false
	c.mu.Unlock()

	if rerender {
		_ = c.render()
	}
}

func (c *Client) handleReturn(components []*Component, validators []ValidatorFunc, groupValidator ValidatorFunc, values []interface{}) {
	canonical := make([]interface{}, len(components))
	for i, comp := range components {
		if comp.schema.Returns == nil {
			canonical[i] = values[i]
			continue
		}
		v, err := comp.schema.Returns(values[i])
		if err != nil {
			c.protocolMismatch(components, err)
			return
		}
		canonical[i] = v
	}

	// Validators are pure and idempotent, so every per-component validator
	// runs concurrently. The first non-empty message in component order is
	// surfaced as validationErrorMessage; validator errors are gathered in
	// component order into one multierror, which is logged and whose first
	// entry is surfaced only when no validator returned a message.
	msgs := make([]string, len(components))
	errs := make([]error, len(components))
	var wg sync.WaitGroup
	for i := range components {
		if validators[i] == nil {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msgs[i], errs[i] = validators[i](canonical[i])
		}(i)
	}
	wg.Wait()

	var merr *multierror.Error
	for i, err := range errs {
		if msgs[i] == "" && err != nil {
			merr = multierror.Append(merr, fmt.Errorf("component %d: %w", i, err))
		}
	}

	var firstMsg string
	for _, m := range msgs {
		if m != "" {
			firstMsg = m
			break
		}
	}
	if firstMsg == "" && merr != nil {
		if c.logger != nil {
			c.logger.Printf("[ERR] ioruntime: validator errors: %v", merr)
		}
		firstMsg = merr.Errors[0].Error()
	}

	if firstMsg == "" && groupValidator != nil {
		msg, err := groupValidator(canonical)
		if msg != "" {
			firstMsg = msg
		} else if err != nil {
			firstMsg = err.Error()
		}
	}

	if firstMsg != "" {
		c.mu.Lock()
		c.validationMessage = firstMsg
		c.mu.Unlock()
		_ = c.render()
		return
	}

	c.mu.Lock()
	c.batchReturned = true
	c.mu.Unlock()

	for i, comp := range components {
		comp.SetReturnValue(canonical[i])
	}
}

func stateEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
