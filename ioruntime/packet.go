package ioruntime

import (
	"encoding/json"

	"github.com/boxcast/actionhost/codec"
	"github.com/boxcast/actionhost/iotypes"
)

// RenderedComponent is one entry of a RenderPacket's toRender list.
type RenderedComponent struct {
	Method iotypes.MethodName `json:"methodName"`
	Label  string             `json:"label"`
	Props  json.RawMessage    `json:"props,omitempty"`
	Meta   codec.Meta         `json:"propsMeta,omitempty"`
}

// RenderPacket is what renderComponents transmits via SEND_IO_CALL.
type RenderPacket struct {
	ID                      string              `json:"id"`
	InputGroupKey           string              `json:"inputGroupKey"`
	ToRender                []RenderedComponent `json:"toRender"`
	ValidationErrorMessage  string              `json:"validationErrorMessage,omitempty"`
	Kind                    string              `json:"kind"`
}

// ResponseKind is the coordinator's IO_RESPONSE discriminant.
type ResponseKind string

const (
	KindReturn   ResponseKind = "RETURN"
	KindSetState ResponseKind = "SET_STATE"
	KindCanceled ResponseKind = "CANCELED"
)

// ResponsePacket is what the Host hands the IO Client after unwrapping an
// IO_RESPONSE envelope.
type ResponsePacket struct {
	InputGroupKey string          `json:"inputGroupKey,omitempty"`
	Kind          ResponseKind    `json:"kind"`
	Values        json.RawMessage `json:"values,omitempty"`
	ValuesMeta    codec.Meta      `json:"valuesMeta,omitempty"`
}

// SendFunc transmits one RenderPacket. The Host Controller supplies this,
// wrapping it in a SEND_IO_CALL{transactionId, ioCall} envelope.
type SendFunc func(RenderPacket) error
