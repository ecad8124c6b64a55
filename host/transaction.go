package host

import (
	"encoding/json"
	"log"

	"github.com/boxcast/actionhost/actions"
	"github.com/boxcast/actionhost/ioruntime"
	"github.com/boxcast/actionhost/registry"
)

// transaction is one live START_TRANSACTION: an IO Client plus the action
// goroutine driving it. It mirrors the shape of a seq-keyed dispatch table
// (map[uint64]seqHandler) but keyed by a coordinator-minted txId string and
// holding a *ioruntime.Client instead of a bare response channel.
type transaction struct {
	id     string
	client *ioruntime.Client
}

// newTransaction builds a transaction whose IO Client transmits render
// packets through send, wrapping each one in a SEND_IO_CALL envelope
// addressed to txID.
func newTransaction(txID string, send func(sendIOCallInput) error, logger *log.Logger) *transaction {
	client := ioruntime.New(func(pkt ioruntime.RenderPacket) error {
		raw, err := json.Marshal(pkt)
		if err != nil {
			return err
		}
		return send(sendIOCallInput{TransactionID: txID, IOCall: string(raw)})
	}, logger)
	return &transaction{id: txID, client: client}
}

// deliver decodes a serialized response packet and routes it to the IO
// Client. Malformed payloads are logged and dropped rather than panicking
// the read-pump goroutine that calls this.
func (t *transaction) deliver(raw string, logger *log.Logger) {
	var resp ioruntime.ResponsePacket
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		if logger != nil {
			logger.Printf("[ERR] host: transaction %s: malformed IO_RESPONSE: %v", t.id, err)
		}
		return
	}
	t.client.HandleResponse(resp)
}

// run invokes fn with a fresh io namespace and returns the action's result
// and error; a panic in fn is not recovered here. On error the Host does not send
// MARK_TRANSACTION_COMPLETE for a failing action, leaving the coordinator to
// time it out.
func (t *transaction) run(fn actions.Func, reg registry.Registry, logger *log.Logger) (interface{}, error) {
	ctx := ioruntime.NewContext(t.client, reg, logger)
	return fn(ctx)
}
