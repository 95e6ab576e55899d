package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anonto42/nano-midea/functions/internal/expiry"
	"github.com/anonto42/nano-midea/functions/internal/media"
	"github.com/anonto42/nano-midea/functions/internal/notification"
	"github.com/anonto42/nano-midea/functions/internal/triggers"
)

// Handler names used in the trigger table.
const (
	HandlerInitializeAccount = "initialize_account"
	HandlerOptimizeImage     = "optimize_image"
	HandlerReapStories       = "reap_stories"
	HandlerSweepTokens       = "sweep_tokens"
)

// Functions binds the trigger table's handler names to the services.
type Functions struct {
	router         *notification.EventRouter
	dispatcher     *notification.Dispatcher
	tokens         *notification.TokenDirectory
	pipeline       *media.Pipeline
	reaper         *expiry.Reaper
	accounts       *AccountInitializer
	tokenSweepDays int
	log            *slog.Logger
}

// NewFunctions creates a new Functions
func NewFunctions(
	router *notification.EventRouter,
	dispatcher *notification.Dispatcher,
	tokens *notification.TokenDirectory,
	pipeline *media.Pipeline,
	reaper *expiry.Reaper,
	accounts *AccountInitializer,
	tokenSweepDays int,
	log *slog.Logger,
) *Functions {
	return &Functions{
		router:         router,
		dispatcher:     dispatcher,
		tokens:         tokens,
		pipeline:       pipeline,
		reaper:         reaper,
		accounts:       accounts,
		tokenSweepDays: tokenSweepDays,
		log:            log,
	}
}

// Handlers returns the handler table passed to triggers.Load.
func (f *Functions) Handlers() triggers.Handlers {
	docs := make(map[string]triggers.DocumentHandler, len(notification.Kinds)+1)
	for _, kind := range notification.Kinds {
		docs[string(kind)] = f.notify(kind)
	}
	docs[HandlerInitializeAccount] = f.accounts.Handle

	return triggers.Handlers{
		Documents: docs,
		Storage: map[string]triggers.StorageHandler{
			HandlerOptimizeImage: f.optimizeImage,
		},
		Jobs: map[string]triggers.JobHandler{
			HandlerReapStories: f.reapStories,
			HandlerSweepTokens: f.sweepTokens,
		},
	}
}

// DispatchSummary is the detail of a notification outcome.
type DispatchSummary struct {
	Kind  notification.Kind `json:"kind"`
	Sent  int               `json:"sent"`
	Total int               `json:"total"`
}

func (f *Functions) notify(kind notification.Kind) triggers.DocumentHandler {
	return func(ctx context.Context, ev triggers.DocumentEvent) triggers.Outcome {
		route, err := f.router.Route(ctx, notification.Event{
			Kind:   kind,
			Params: ev.Params,
			Before: ev.Before,
			After:  ev.After,
		})
		if err != nil {
			return triggers.Failed(err)
		}
		if route.SkipReason != "" {
			return triggers.Ignored(route.SkipReason)
		}

		tally := f.dispatcher.DispatchAll(ctx, route.Instructions)
		f.log.Info("notifications_dispatched", "kind", kind, "event_id", ev.ID, "sent", tally.Sent, "total", tally.Total)
		return triggers.Done(DispatchSummary{Kind: kind, Sent: tally.Sent, Total: tally.Total})
	}
}

func (f *Functions) optimizeImage(ctx context.Context, obj triggers.StorageObject) triggers.Outcome {
	res, err := f.pipeline.Process(ctx, media.Upload{
		Bucket:      obj.Bucket,
		Name:        obj.Name,
		ContentType: obj.ContentType,
	})
	if err != nil {
		var codecErr *media.CodecError
		if errors.As(err, &codecErr) {
			f.log.Error("image_codec_failed", "path", obj.Name, "exit_code", codecErr.ExitCode)
		}
		return triggers.Failed(err)
	}
	if res.Skipped() {
		return triggers.Ignored(res.SkipReason)
	}
	return triggers.Done(map[string]string{
		"thumbnail": res.Thumbnail.Path,
		"optimized": res.Optimized.Path,
		"owner":     res.Owner,
	})
}

func (f *Functions) reapStories(ctx context.Context, now time.Time) triggers.Outcome {
	report, err := f.reaper.Sweep(ctx, now)
	if err != nil {
		return triggers.Failed(err)
	}
	return triggers.Done(report)
}

func (f *Functions) sweepTokens(ctx context.Context, _ time.Time) triggers.Outcome {
	n, err := f.tokens.SweepExpired(ctx, f.tokenSweepDays)
	if err != nil {
		return triggers.Failed(err)
	}
	return triggers.Done(map[string]int{"cleared": n})
}
