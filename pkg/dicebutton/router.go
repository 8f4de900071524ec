package dicebutton

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/twonirwana/dicebutton/pkg/dicebutton/customid"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/observability"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/registry"
)

// processingText replaces a button message's content while its
// finalization is in flight.
const processingText = "processing ..."

// Router dispatches clicks to handlers and applies their decisions.
// The handler table is fixed at construction; Router is safe for
// concurrent use.
type Router struct {
	handlers    *registry.Table[string, Handler]
	store       record.Store
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
	images      ImageRenderer
	deleteDelay time.Duration
	newUUID     func() uuid.UUID
	after       func(time.Duration, func()) *time.Timer
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the structured logger. Default: no logging.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithMetrics sets the metrics recorder. Default: NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithSpans sets the span manager. Default: NoopSpanManager.
func WithSpans(s observability.SpanManager) Option {
	return func(r *Router) {
		if s != nil {
			r.spans = s
		}
	}
}

// WithImageRenderer sets the answer illustration hook. Default: none,
// answers are text-only.
func WithImageRenderer(r ImageRenderer) Option {
	return func(rt *Router) { rt.images = r }
}

// WithDeleteDelay sets how long superseded flow records linger before
// deletion, giving in-flight clicks on the old message time to land.
// Default: 10s.
func WithDeleteDelay(d time.Duration) Option {
	return func(r *Router) {
		if d >= 0 {
			r.deleteDelay = d
		}
	}
}

// WithUUIDSource overrides flow UUID generation. Intended for tests.
func WithUUIDSource(f func() uuid.UUID) Option {
	return func(r *Router) {
		if f != nil {
			r.newUUID = f
		}
	}
}

// NewRouter builds a router over the given store and handlers. Handlers
// with duplicate command identifiers overwrite each other; register each
// kind once.
func NewRouter(store record.Store, handlers []Handler, opts ...Option) *Router {
	byCommand := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		byCommand[h.CommandID()] = h
	}
	r := &Router{
		handlers:    registry.New(byCommand),
		store:       store,
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
		deleteDelay: 10 * time.Second,
		newUUID:     uuid.New,
		after:       time.AfterFunc,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Commands returns the registered command identifiers.
func (r *Router) Commands() []string { return r.handlers.Keys() }

// StartFlow creates a new flow: it posts the kind's start message to the
// channel and persists the flow record keyed by the new message.
func (r *Router) StartFlow(ctx context.Context, adapter ChatAdapter, commandID string, cfg Config, channelID, guildID int64) (record.MessageRef, error) {
	h, ok := r.handlers.Get(commandID)
	if !ok {
		return record.MessageRef{}, fmt.Errorf("%w: %s", ErrUnknownCommand, commandID)
	}

	ctx, span := r.spans.StartFlowSpan(ctx, commandID)
	flowID := r.newUUID()

	msg := h.StartMessage(cfg, flowID)
	messageID, err := adapter.SendMessage(ctx, channelID, msg)
	if err != nil {
		r.spans.EndSpanWithError(span, err)
		return record.MessageRef{}, fmt.Errorf("send start message: %w", err)
	}

	ref := record.MessageRef{ChannelID: channelID, MessageID: messageID}
	if err := r.putRecord(ctx, flowID, ref, guildID, commandID, cfg, AtRest(), time.Time{}); err != nil {
		r.spans.EndSpanWithError(span, err)
		return ref, err
	}

	r.metrics.RecordFlowStart(ctx, commandID)
	observability.LogFlowStart(r.logger, commandID, flowID.String(), channelID)
	r.spans.EndSpanWithError(span, nil)
	return ref, nil
}

// HandleClick processes one button click end to end: decode, load or
// bridge the flow, step, then apply the result. Every persistence write
// completes before the chat edit that reflects it. Errors are scoped to
// this click; other flows are unaffected.
func (r *Router) HandleClick(ctx context.Context, adapter ChatAdapter, click Click) error {
	dec, err := customid.Decode(click.CustomID)
	if err != nil {
		observability.LogClickError(r.logger, "", err)
		return err
	}

	h, ok := r.handlers.Get(dec.CommandID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownCommand, dec.CommandID)
		observability.LogClickError(r.logger, dec.CommandID, err)
		return err
	}

	ctx, span := r.spans.StartClickSpan(ctx, dec.CommandID, dec.FlowID.String())
	done := observability.TimedOperation()
	logger := observability.EnrichLogger(r.logger, dec.CommandID, dec.FlowID.String(), dec.Encoding.String())
	observability.LogClickStart(logger, dec.CommandID, dec.ButtonValue)

	outcome, err := r.handleDecoded(ctx, adapter, h, dec, click, logger)

	duration := time.Duration(done()) * time.Millisecond
	r.metrics.RecordClick(ctx, dec.CommandID, dec.Encoding.String(), outcome, duration, err)
	if err != nil {
		observability.LogClickError(logger, dec.CommandID, err)
	} else {
		observability.LogClickHandled(logger, dec.CommandID, outcome, float64(duration.Milliseconds()))
	}
	r.spans.EndSpanWithError(span, err)
	return err
}

// handleDecoded loads or bridges the flow, steps, and applies the result.
// Returns the outcome label for metrics.
func (r *Router) handleDecoded(ctx context.Context, adapter ChatAdapter, h Handler, dec customid.Decoded, click Click, logger *slog.Logger) (string, error) {
	var (
		cfg       Config
		prog      Progress
		flowID    uuid.UUID
		createdAt time.Time
	)

	if dec.Encoding.Legacy() {
		bridge, ok := h.(LegacyBridge)
		if !ok {
			return "error", fmt.Errorf("%w: %s", ErrNoLegacyBridge, dec.CommandID)
		}
		var err error
		cfg, prog, err = bridge.DecodeLegacy(dec, click)
		if err != nil {
			return "error", fmt.Errorf("bridge legacy identifier: %w", err)
		}
		// The migrated record is written before stepping so the flow
		// survives even if the rest of this click fails.
		flowID = r.newUUID()
		if err := r.putRecord(ctx, flowID, click.Message, click.GuildID, dec.CommandID, cfg, prog, time.Time{}); err != nil {
			return "error", err
		}
		r.metrics.RecordLegacyMigration(ctx, dec.CommandID, dec.Encoding.String())
		observability.LogLegacyMigration(logger, dec.CommandID, dec.Encoding.String(), flowID.String())
	} else {
		rec, err := r.store.Get(ctx, click.Message)
		if errors.Is(err, record.ErrNotFound) && dec.FlowID != uuid.Nil {
			// Clicks on a superseded button message still carry the flow
			// identity; resolve them against the newest record of the flow.
			rec, err = r.store.ByFlowID(ctx, dec.FlowID)
		}
		if errors.Is(err, record.ErrNotFound) {
			text := fmt.Sprintf("This button message is no longer active. Start a new one with `/%s start`.", dec.CommandID)
			if replyErr := adapter.Reply(ctx, text); replyErr != nil {
				observability.LogAdapterError(r.logger, "reply", replyErr)
			}
			return "stale", nil
		}
		if err != nil {
			observability.LogStoreError(r.logger, "get", err)
			return "error", fmt.Errorf("load flow record: %w", err)
		}
		if rec.CommandID != dec.CommandID {
			return "error", fmt.Errorf("%w: record %s, click %s", ErrCommandMismatch, rec.CommandID, dec.CommandID)
		}
		cfg, err = h.LoadConfig(rec.ConfigClassID, rec.Config)
		if err != nil {
			return "error", fmt.Errorf("load config: %w", err)
		}
		prog, err = h.LoadProgress(rec.ProgressClassID, rec.Progress)
		if err != nil {
			return "error", fmt.Errorf("load progress: %w", err)
		}
		flowID = rec.FlowID
		createdAt = rec.CreatedAt
	}

	res := h.Step(cfg, prog, flowID, dec.ButtonValue, click.Invoker)
	if err := r.apply(ctx, adapter, h, flowID, createdAt, cfg, click, res, logger); err != nil {
		return res.Outcome.String(), err
	}
	return res.Outcome.String(), nil
}

// apply performs the side effects a StepResult asks for.
func (r *Router) apply(ctx context.Context, adapter ChatAdapter, h Handler, flowID uuid.UUID, createdAt time.Time, cfg Config, click Click, res StepResult, logger *slog.Logger) error {
	switch res.Outcome {
	case OutcomeReject:
		observability.LogClickRejected(logger, h.CommandID(), res.Reason)
		if err := adapter.Acknowledge(ctx); err != nil {
			observability.LogAdapterError(r.logger, "acknowledge", err)
		}
		return nil

	case OutcomeContinue:
		if err := r.putRecord(ctx, flowID, click.Message, click.GuildID, h.CommandID(), cfg, res.Progress, createdAt); err != nil {
			return err
		}
		if err := adapter.EditMessage(ctx, click.Message, res.Content, res.Controls); err != nil {
			return fmt.Errorf("edit message: %w", err)
		}
		return nil

	case OutcomeFinalize:
		return r.finalize(ctx, adapter, h, flowID, cfg, click, res)

	default:
		return fmt.Errorf("unknown outcome %d", res.Outcome)
	}
}

// finalize ends an interaction round.
func (r *Router) finalize(ctx context.Context, adapter ChatAdapter, h Handler, flowID uuid.UUID, cfg Config, click Click, res StepResult) error {
	if res.Spawn != nil {
		return r.spawn(ctx, adapter, h, click, res)
	}

	if err := r.store.ClearProgress(ctx, click.Message); err != nil && !errors.Is(err, record.ErrNotFound) {
		observability.LogStoreError(r.logger, "clear_progress", err)
		return fmt.Errorf("clear progress: %w", err)
	}

	// Pinned messages and flows answering into another channel keep
	// their button message in place.
	keepMessage := click.Pinned || cfg.TargetChannel() != 0

	if res.Answer != nil {
		if res.Repost && !keepMessage {
			if err := adapter.EditMessage(ctx, click.Message, processingText, [][]Button{}); err != nil {
				observability.LogAdapterError(r.logger, "edit", err)
			}
		}
		answerChannel := cfg.TargetChannel()
		if answerChannel == 0 {
			answerChannel = click.Message.ChannelID
		}
		answerMsg := Message{Content: res.Answer.Render(cfg.Format())}
		if r.images != nil {
			img, err := r.images.RenderAnswer(*res.Answer)
			if err != nil {
				observability.LogRenderError(r.logger, err)
			} else {
				answerMsg.Image = img
			}
		}
		if _, err := adapter.SendMessage(ctx, answerChannel, answerMsg); err != nil {
			return fmt.Errorf("send answer: %w", err)
		}
	}

	switch {
	case res.Repost && !keepMessage:
		return r.repost(ctx, adapter, h, flowID, cfg, click)
	case res.Answer == nil && !res.Repost:
		// Bare finish: strip the buttons, keep the content, and let the
		// record expire.
		if err := adapter.EditMessage(ctx, click.Message, "", [][]Button{}); err != nil {
			return fmt.Errorf("edit message: %w", err)
		}
		r.deleteLater(click.Message)
		return nil
	default:
		// Reset the clicked message for the next round.
		start := h.StartMessage(cfg, flowID)
		if err := adapter.EditMessage(ctx, click.Message, start.Content, start.Controls); err != nil {
			return fmt.Errorf("edit message: %w", err)
		}
		return nil
	}
}

// repost replaces the clicked button message with a fresh one at the
// bottom of the channel and cleans up every superseded message of the
// same flow.
func (r *Router) repost(ctx context.Context, adapter ChatAdapter, h Handler, flowID uuid.UUID, cfg Config, click Click) error {
	start := h.StartMessage(cfg, flowID)
	newMessageID, err := adapter.SendMessage(ctx, click.Message.ChannelID, start)
	if err != nil {
		return fmt.Errorf("repost button message: %w", err)
	}
	newRef := record.MessageRef{ChannelID: click.Message.ChannelID, MessageID: newMessageID}
	if err := r.putRecord(ctx, flowID, newRef, click.GuildID, h.CommandID(), cfg, AtRest(), time.Time{}); err != nil {
		return err
	}

	ids, err := r.store.MessageIDsForFlow(ctx, flowID, click.Message.ChannelID)
	if err != nil {
		observability.LogStoreError(r.logger, "message_ids_for_flow", err)
		return nil
	}
	for _, id := range ids {
		if id == newMessageID {
			continue
		}
		if id == click.Message.MessageID && click.Pinned {
			continue
		}
		old := record.MessageRef{ChannelID: click.Message.ChannelID, MessageID: id}
		if err := adapter.DeleteMessage(ctx, old); err != nil {
			observability.LogAdapterError(r.logger, "delete", err)
		}
		if err := r.store.Delete(ctx, old); err != nil {
			observability.LogStoreError(r.logger, "delete", err)
		}
	}
	return nil
}

// spawn starts a new flow lineage out of a finalization: new UUID, new
// button message, delayed deletion of the old flow's record. The old
// flow's progress is left untouched.
func (r *Router) spawn(ctx context.Context, adapter ChatAdapter, h Handler, click Click, res StepResult) error {
	newID := r.newUUID()
	msg := h.StartMessage(res.Spawn.Config, newID)

	// The old message keeps its content but loses its buttons.
	if err := adapter.EditMessage(ctx, click.Message, "", [][]Button{}); err != nil {
		observability.LogAdapterError(r.logger, "edit", err)
	}

	messageID, err := adapter.SendMessage(ctx, click.Message.ChannelID, msg)
	if err != nil {
		return fmt.Errorf("send spawned message: %w", err)
	}
	newRef := record.MessageRef{ChannelID: click.Message.ChannelID, MessageID: messageID}
	if err := r.putRecord(ctx, newID, newRef, click.GuildID, h.CommandID(), res.Spawn.Config, AtRest(), time.Time{}); err != nil {
		return err
	}

	r.metrics.RecordFlowStart(ctx, h.CommandID())
	r.deleteLater(click.Message)
	return nil
}

// deleteLater schedules best-effort deletion of a flow record, giving
// in-flight clicks on the old message time to land.
func (r *Router) deleteLater(ref record.MessageRef) {
	r.after(r.deleteDelay, func() {
		if err := r.store.Delete(context.Background(), ref); err != nil {
			observability.LogStoreError(r.logger, "delayed_delete", err)
		}
	})
}

// putRecord serializes config and progress and writes the flow record.
// A zero createdAt lets the store default it.
func (r *Router) putRecord(ctx context.Context, flowID uuid.UUID, ref record.MessageRef, guildID int64, commandID string, cfg Config, prog Progress, createdAt time.Time) error {
	configPayload, err := record.MarshalPayload(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	rec := &record.FlowRecord{
		FlowID:          flowID,
		GuildID:         guildID,
		Message:         ref,
		CommandID:       commandID,
		ConfigClassID:   cfg.ClassID(),
		Config:          configPayload,
		ProgressClassID: record.NoProgress,
		CreatedAt:       createdAt,
	}
	if !prog.IsAtRest() {
		data := prog.Data()
		payload, err := record.MarshalPayload(data)
		if err != nil {
			return fmt.Errorf("marshal progress: %w", err)
		}
		rec.ProgressClassID = data.ClassID()
		rec.Progress = payload
	}
	if err := r.store.Put(ctx, rec); err != nil {
		observability.LogStoreError(r.logger, "put", err)
		return fmt.Errorf("persist flow record: %w", err)
	}
	return nil
}
