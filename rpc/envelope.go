package rpc

// MethodName identifies a top-level RPC method exchanged between host and
// coordinator (INITIALIZE_HOST, SEND_IO_CALL, ...). It is a different
// vocabulary from iotypes.MethodName, which names IO component kinds
// nested inside a render packet's payload.
type MethodName string

const (
	// InitializeHost, SendIOCall and MarkTransactionComplete are called by
	// the host; the coordinator responds.
	InitializeHost          MethodName = "INITIALIZE_HOST"
	SendIOCall              MethodName = "SEND_IO_CALL"
	MarkTransactionComplete MethodName = "MARK_TRANSACTION_COMPLETE"

	// StartTransaction and IOResponse are called by the coordinator; the
	// host responds.
	StartTransaction MethodName = "START_TRANSACTION"
	IOResponse       MethodName = "IO_RESPONSE"
)

type envelopeKind string

const (
	kindCall     envelopeKind = "call"
	kindResponse envelopeKind = "response"
	kindError    envelopeKind = "error"
)

// envelope is the framed unit exchanged over the Socket. Payload is left as
// interface{} so the msgpack codec can encode/decode it structurally,
// exactly as an RPCClient.send encodes a header then a body value without
// an intermediate schema.
type envelope struct {
	CallID  string       `codec:"call_id"`
	Kind    envelopeKind `codec:"kind"`
	Method  MethodName   `codec:"method"`
	Payload interface{}  `codec:"payload"`
	Error   string       `codec:"error,omitempty"`
}
