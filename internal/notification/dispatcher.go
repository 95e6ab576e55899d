package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anonto42/nano-midea/functions/internal/metrics"
	"github.com/anonto42/nano-midea/functions/internal/models"
)

// Dispatch failure reasons.
const (
	ReasonNoToken        = "no-token"
	ReasonTransportError = "transport-error"
	ReasonStoreError     = "store-error"
	ReasonRenderError    = "render-error"
)

// DefaultFanoutConcurrency bounds concurrent sends in DispatchAll.
const DefaultFanoutConcurrency = 32

// ErrTokenUnregistered is returned by a Transport when the device token is
// no longer valid.
var ErrTokenUnregistered = errors.New("device token unregistered")

// Transport delivers a rendered payload to one device token.
type Transport interface {
	Send(ctx context.Context, token string, p Payload) (string, error)
}

// DeliveryRecorder persists dispatch results.
type DeliveryRecorder interface {
	CreateReceipt(ctx context.Context, receipt *models.DeliveryReceipt) error
}

// Result is the outcome of one dispatch.
type Result struct {
	RecipientID string
	Kind        Kind
	Delivered   bool
	MessageID   string
	Reason      string
	Err         error
}

// Tally aggregates a fan-out.
type Tally struct {
	Sent    int
	Total   int
	Results []Result
}

// Dispatcher resolves tokens, renders payloads and hands them to the
// transport. It never returns errors; failures are reported in Results.
type Dispatcher struct {
	tokens      *TokenDirectory
	renderer    *Renderer
	transport   Transport
	recorder    DeliveryRecorder
	concurrency int
	log         *slog.Logger
}

// NewDispatcher creates a Dispatcher. recorder may be nil.
func NewDispatcher(tokens *TokenDirectory, renderer *Renderer, transport Transport, recorder DeliveryRecorder, concurrency int, log *slog.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultFanoutConcurrency
	}
	return &Dispatcher{
		tokens:      tokens,
		renderer:    renderer,
		transport:   transport,
		recorder:    recorder,
		concurrency: concurrency,
		log:         log,
	}
}

// Dispatch delivers one instruction.
func (d *Dispatcher) Dispatch(ctx context.Context, in DispatchInstruction) Result {
	res := d.dispatch(ctx, in)

	outcome := "sent"
	if !res.Delivered {
		outcome = res.Reason
	}
	metrics.ObserveDispatch(string(in.Kind), outcome)
	d.record(ctx, in, res)
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, in DispatchInstruction) Result {
	res := Result{RecipientID: in.RecipientID, Kind: in.Kind}

	token, ok, err := d.tokens.Resolve(ctx, in.RecipientID)
	if err != nil {
		d.log.Error("token_lookup_failed", "recipient", in.RecipientID, "kind", in.Kind, "error", err)
		res.Reason = ReasonStoreError
		res.Err = err
		return res
	}
	if !ok {
		d.log.Info("no_token", "recipient", in.RecipientID, "kind", in.Kind)
		res.Reason = ReasonNoToken
		return res
	}

	payload, err := d.renderer.Render(in.Kind, in.Context)
	if err != nil {
		d.log.Error("render_failed", "recipient", in.RecipientID, "kind", in.Kind, "error", err)
		res.Reason = ReasonRenderError
		res.Err = err
		return res
	}

	id, err := d.transport.Send(ctx, token, payload)
	if err != nil {
		d.log.Warn("send_failed", "recipient", in.RecipientID, "kind", in.Kind, "error", err)
		res.Reason = ReasonTransportError
		res.Err = err
		if errors.Is(err, ErrTokenUnregistered) {
			if ferr := d.tokens.Forget(ctx, in.RecipientID); ferr != nil {
				d.log.Warn("forget_token_failed", "recipient", in.RecipientID, "error", ferr)
			}
		}
		return res
	}

	d.log.Info("notification_sent", "recipient", in.RecipientID, "kind", in.Kind, "message_id", id)
	res.Delivered = true
	res.MessageID = id
	return res
}

// DispatchAll delivers every instruction concurrently. One failure never
// prevents the others; Results keep the input order.
func (d *Dispatcher) DispatchAll(ctx context.Context, ins []DispatchInstruction) Tally {
	results := make([]Result, len(ins))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, in := range ins {
		g.Go(func() error {
			results[i] = d.Dispatch(ctx, in)
			return nil
		})
	}
	_ = g.Wait()

	t := Tally{Total: len(ins), Results: results}
	for _, r := range results {
		if r.Delivered {
			t.Sent++
		}
	}
	return t
}

func (d *Dispatcher) record(ctx context.Context, in DispatchInstruction, res Result) {
	if d.recorder == nil {
		return
	}
	receipt := &models.DeliveryReceipt{
		Kind:        string(in.Kind),
		RecipientID: in.RecipientID,
		ActorID:     in.Context.Actor.ID,
		TargetID:    targetID(in),
		Delivered:   res.Delivered,
		Reason:      res.Reason,
		MessageID:   res.MessageID,
		CreatedAt:   time.Now(),
	}
	if err := d.recorder.CreateReceipt(ctx, receipt); err != nil {
		d.log.Warn("delivery_receipt_failed", "recipient", in.RecipientID, "error", err)
	}
}

func targetID(in DispatchInstruction) string {
	switch {
	case in.Context.ChatID != "":
		return in.Context.ChatID
	case in.Context.StoryID != "":
		return in.Context.StoryID
	case in.Context.PostID != "":
		return in.Context.PostID
	}
	return in.Context.Actor.ID
}
