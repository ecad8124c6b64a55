package host

// initializeHostInput is INITIALIZE_HOST's outbound payload.
type initializeHostInput struct {
	APIKey              string   `codec:"apiKey"`
	CallableActionNames []string `codec:"callableActionNames"`
}

// startTransactionInput is START_TRANSACTION's inbound payload.
type startTransactionInput struct {
	TransactionID string `codec:"transactionId"`
	ActionName    string `codec:"actionName"`
}

// ioResponseInput is IO_RESPONSE's inbound payload. Value carries a
// serialized response packet (JSON text), decoded by the receiving
// ioruntime.Client via codec.Decode after an encoding/json.Unmarshal of
// the envelope.
type ioResponseInput struct {
	TransactionID string `codec:"transactionId"`
	Value         string `codec:"value"`
}

// sendIOCallInput is SEND_IO_CALL's outbound payload. IOCall carries the
// render packet serialized to JSON text, matching the wire shape the
// coordinator expects ("ioCall is a serialized render packet").
type sendIOCallInput struct {
	TransactionID string `codec:"transactionId"`
	IOCall        string `codec:"ioCall"`
}

// markTransactionCompleteInput is MARK_TRANSACTION_COMPLETE's outbound
// payload.
type markTransactionCompleteInput struct {
	TransactionID string `codec:"transactionId"`
}
