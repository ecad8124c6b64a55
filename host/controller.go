package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/boxcast/actionhost/actions"
	backoffpkg "github.com/boxcast/actionhost/backoff"
	"github.com/boxcast/actionhost/diag"
	"github.com/boxcast/actionhost/hosterrors"
	"github.com/boxcast/actionhost/rpc"
	"github.com/boxcast/actionhost/telemetry"
	"github.com/boxcast/actionhost/transport"
)

// Controller is the Host Controller: one supervised coordinator connection,
// one action registry, one transaction table. Construct with New and run
// with Run.
type Controller struct {
	cfg      Config
	registry *actions.Registry

	socket  *transport.Socket
	duplex  *rpc.Duplex
	trace   *diag.Trace
	stepper *backoffpkg.Stepper

	mu           sync.Mutex
	transactions map[string]*transaction
}

// New validates cfg, applies defaults, and builds a Controller ready for
// Run. It does not dial anything.
func New(cfg Config) (*Controller, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Controller{
		cfg:          cfg,
		registry:     cfg.buildRegistry(),
		transactions: make(map[string]*transaction),
		trace:        diag.NewTrace(0),
	}, nil
}

// Run dials the coordinator, handshakes, and serves until ctx is canceled
// or a fatal error (AUTH_INVALID) occurs. A dropped connection is retried
// under the bounded backoff schedule rather than returning.
func (c *Controller) Run(ctx context.Context) error {
	c.stepper = backoffpkg.New(nil, 0)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.connectOnce(ctx)
		if err == nil {
			return nil // closed cleanly via ctx cancellation
		}

		if isKind(err, hosterrors.AuthInvalid) {
			c.cfg.Logger.Printf("[ERR] host: handshake rejected, giving up: %v", err)
			return err
		}

		c.cfg.Metrics.IncrCounter([]string{"host", "reconnect"}, 1)
		wait := c.stepper.NextBackOff()
		c.cfg.Logger.Printf("[WARN] host: connection lost, reconnecting in %s: %v", wait, err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isKind(err error, kind hosterrors.Kind) bool {
	he, ok := err.(*hosterrors.Error)
	return ok && he.Kind == kind
}

// connectOnce dials, handshakes, and blocks until the connection drops or
// ctx is canceled. A nil return means ctx was canceled (clean shutdown); a
// non-nil return is the reason the connection ended.
func (c *Controller) connectOnce(ctx context.Context) error {
	c.socket = transport.New(c.cfg.DialTimeout)

	closed := make(chan error, 1)

	canCall := map[rpc.MethodName]rpc.MethodSchema{
		rpc.InitializeHost:          {},
		rpc.SendIOCall:              {},
		rpc.MarkTransactionComplete: {},
	}
	canRespond := map[rpc.MethodName]rpc.MethodSchema{
		rpc.StartTransaction: {},
		rpc.IOResponse:       {},
	}
	handlers := map[rpc.MethodName]rpc.Handler{
		rpc.StartTransaction: c.handleStartTransaction,
		rpc.IOResponse:       c.handleIOResponse,
	}
	c.duplex = rpc.New(c.socket, canCall, canRespond, handlers)

	handler := transport.Handler{
		OnMessage: func(b []byte) {
			c.trace.Record("recv", fmt.Sprintf("%d bytes", len(b)))
			c.duplex.HandleMessage(b)
		},
		OnClose: func(code int, reason string) {
			c.duplex.HandleClose(code, reason)
			closed <- hosterrors.Newf(hosterrors.TransportClosed, "socket closed (%d): %s", code, reason)
		},
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	if err := c.socket.Connect(dialCtx, c.cfg.Endpoint, handler); err != nil {
		return err
	}

	if err := c.handshake(ctx); err != nil {
		_ = c.socket.Close(1000, "handshake failed")
		return err
	}
	c.stepper.Reset()
	c.cfg.Logger.Printf("[INFO] host: connected and handshaked")

	select {
	case err := <-closed:
		return err
	case <-ctx.Done():
		_ = c.socket.Close(1000, "shutting down")
		return nil
	}
}

func (c *Controller) handshake(ctx context.Context) error {
	rpcCtx, cancel := context.WithTimeout(ctx, c.cfg.RPCTimeout)
	defer cancel()

	result, err := c.duplex.Call(rpcCtx, rpc.InitializeHost, initializeHostInput{
		APIKey:              c.cfg.APIKey,
		CallableActionNames: c.registry.Names(),
	})
	if err != nil {
		return hosterrors.Wrap(hosterrors.AuthInvalid, err)
	}
	if falsy, ok := result.(bool); ok && !falsy {
		return hosterrors.New(hosterrors.AuthInvalid, "coordinator rejected handshake")
	}
	if result == nil {
		return hosterrors.New(hosterrors.AuthInvalid, "coordinator rejected handshake")
	}
	return nil
}

// handleStartTransaction is wired as the coordinator-callable
// START_TRANSACTION handler. An unknown action logs and responds
// without creating a transaction; a known action gets its own IO Client and
// goroutine, registered in the transaction table until it completes.
func (c *Controller) handleStartTransaction(ctx context.Context, inputs interface{}) (interface{}, error) {
	in, err := decodeInto[startTransactionInput](inputs)
	if err != nil {
		return nil, err
	}

	fn, ok := c.registry.Lookup(in.ActionName)
	if !ok {
		c.cfg.Logger.Printf("[WARN] host: unknown action %q for transaction %s", in.ActionName, in.TransactionID)
		return nil, nil
	}

	tx := newTransaction(in.TransactionID, func(pkt sendIOCallInput) error {
		c.trace.Record("send", fmt.Sprintf("SEND_IO_CALL tx=%s", pkt.TransactionID))
		_, err := c.duplex.Call(context.Background(), rpc.SendIOCall, pkt)
		return err
	}, c.cfg.Logger)

	c.mu.Lock()
	c.transactions[in.TransactionID] = tx
	c.mu.Unlock()
	c.cfg.Metrics.IncrCounter([]string{"host", "transaction", "start"}, 1)
	start := time.Now()

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.transactions, in.TransactionID)
			c.mu.Unlock()
			c.cfg.Metrics.MeasureSince([]string{"host", "transaction", "duration"}, start)
		}()

		_, runErr := tx.run(fn, c.cfg.Registry, c.cfg.Logger)
		if runErr != nil {
			c.cfg.Logger.Printf("[ERR] host: action %q (tx %s) failed: %v", in.ActionName, in.TransactionID, runErr)
			return
		}

		_, err := c.duplex.Call(context.Background(), rpc.MarkTransactionComplete, markTransactionCompleteInput{TransactionID: in.TransactionID})
		if err != nil {
			c.cfg.Logger.Printf("[ERR] host: MARK_TRANSACTION_COMPLETE failed for tx %s: %v", in.TransactionID, err)
		}
	}()

	return nil, nil
}

// handleIOResponse is wired as the coordinator-callable IO_RESPONSE
// handler. A response for an unknown (already-completed or never-started)
// transaction is dropped silently.
func (c *Controller) handleIOResponse(ctx context.Context, inputs interface{}) (interface{}, error) {
	in, err := decodeInto[ioResponseInput](inputs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	tx, ok := c.transactions[in.TransactionID]
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}

	tx.deliver(in.Value, c.cfg.Logger)
	return nil, nil
}

// decodeInto mapstructure-decodes a msgpack-generic inbound payload (the
// map[string]interface{} rpc.Duplex hands handlers) into the payload's
// typed Go shape, matching "codec" tags rather than "json" since the value
// crossed the msgpack boundary, not the value codec's JSON one.
func decodeInto[T any](v interface{}) (T, error) {
	var zero T
	var dst T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &dst,
		WeaklyTypedInput: true,
		TagName:          "codec",
	})
	if err != nil {
		return zero, fmt.Errorf("host: build decoder: %w", err)
	}
	if err := dec.Decode(v); err != nil {
		return zero, fmt.Errorf("host: decode inputs: %w", err)
	}
	return dst, nil
}

// Metrics exposes the controller's telemetry sink, mainly for tests.
func (c *Controller) Metrics() *telemetry.Metrics { return c.cfg.Metrics }

// DumpDiagnostics returns the recent wire-trace history, for inclusion in a
// connection-loss report.
func (c *Controller) DumpDiagnostics() string { return c.trace.Dump() }
