package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BaSui01/batchflow/llm"
	"github.com/BaSui01/batchflow/llm/tokenizer"
)

// Config configures an Executor. The zero value gives the base design:
// strictly sequential processing, unpaced, no metrics.
type Config struct {
	// Concurrency bounds the number of in-flight completion calls.
	// Values <= 1 keep the sequential base design. Concurrency > 1 only
	// applies to continue-on-failure batches; fail-fast batches always run
	// sequentially so the stop-at-first-failure semantics stay exact.
	Concurrency int

	// RequestsPerSecond paces dispatches across the whole batch.
	// Zero means unpaced.
	RequestsPerSecond float64

	// Metrics optionally records per-record and per-batch observations.
	Metrics *Metrics

	// Counter optionally estimates prompt tokens for debug logging.
	// Estimates never influence the request.
	Counter tokenizer.Counter
}

// RunOptions are the batch-wide parameters of one Run invocation.
type RunOptions struct {
	// Operation selects the request-construction strategy for every record.
	// Defaults to OpChat.
	Operation Operation

	// Model is the model identifier passed through to the endpoint as an
	// opaque string.
	Model string

	// RawOptions is the loosely-typed advanced-options bag. It is normalized
	// exactly once per batch; unrecognized keys are ignored.
	RawOptions map[string]any

	// Defaults are the local fallbacks applied to unset option fields at
	// build time. Zero value defers all defaulting to the endpoint.
	Defaults llm.Defaults

	// ContinueOnFailure isolates per-record failures into Failure outputs.
	// When false the batch aborts at the first failure.
	ContinueOnFailure bool
}

// Executor orchestrates batch completion runs against a single client.
// It keeps no state across invocations; everything per-batch lives in Run.
type Executor struct {
	client  llm.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates an Executor.
func New(client llm.Client, cfg Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Executor{
		client:  client,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Run processes records in input order and returns one OutputRecord per
// processed record, index-aligned with the input.
//
// With ContinueOnFailure, len(out) == len(in) and the returned error is nil
// unless ctx was cancelled. Without it, the first failure aborts: out holds
// the results of records strictly before the failing one and the classified
// failure is returned as the error. Cancellation stops the loop before
// further records start; completed results are returned with ctx's error.
func (e *Executor) Run(ctx context.Context, records []InputRecord, opts RunOptions) ([]OutputRecord, error) {
	start := time.Now()
	defer func() {
		e.cfg.Metrics.observeBatch(time.Since(start))
	}()

	if opts.Operation == "" {
		opts.Operation = OpChat
	}

	runID := uuid.NewString()
	logger := e.logger.With(
		zap.String("run_id", runID),
		zap.String("operation", string(opts.Operation)),
		zap.String("model", opts.Model),
		zap.Int("records", len(records)),
	)

	// Batch-wide values, computed once and reused read-only for every record.
	normalized := llm.NormalizeOptions(opts.RawOptions)
	builder := llm.NewRequestBuilder(opts.Defaults)

	// Work on a copy so ID defaulting never mutates the caller's slice.
	recs := append([]InputRecord(nil), records...)
	for i := range recs {
		if recs[i].ID == "" {
			recs[i].ID = fmt.Sprintf("%s-%d", runID, i)
		}
	}

	logger.Debug("batch start")

	if opts.ContinueOnFailure && e.cfg.Concurrency > 1 {
		return e.runConcurrent(ctx, recs, opts, builder, normalized, logger)
	}
	return e.runSequential(ctx, recs, opts, builder, normalized, logger)
}

func (e *Executor) runSequential(ctx context.Context, recs []InputRecord, opts RunOptions, builder *llm.RequestBuilder, normalized llm.CompletionOptions, logger *zap.Logger) ([]OutputRecord, error) {
	out := make([]OutputRecord, 0, len(recs))
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			logger.Debug("batch cancelled", zap.Int("completed", len(out)))
			return out, err
		}

		resp, err := e.step(ctx, builder, normalized, opts, rec)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				logger.Debug("batch cancelled", zap.Int("completed", len(out)))
				return out, ctxErr
			}
			cerr := llm.Classify(err)
			e.cfg.Metrics.observeRecord(opts.Operation, StatusFailure)
			if !opts.ContinueOnFailure {
				logger.Warn("batch aborted",
					zap.Int("index", i),
					zap.String("record_id", rec.ID),
					zap.String("code", string(cerr.Code)))
				return out, cerr
			}
			logger.Debug("record failed",
				zap.Int("index", i),
				zap.String("record_id", rec.ID),
				zap.String("code", string(cerr.Code)))
			out = append(out, assembleFailure(i, rec, opts.Operation, opts.Model, cerr))
			continue
		}

		e.cfg.Metrics.observeRecord(opts.Operation, StatusSuccess)
		out = append(out, assembleSuccess(i, rec, opts.Operation, opts.Model, resp))
	}
	logger.Debug("batch done", zap.Int("completed", len(out)))
	return out, nil
}

// runConcurrent dispatches records through a bounded worker set. Results are
// written by index so out[i] still corresponds to in[i] whatever the
// completion order. Only reachable with ContinueOnFailure, so workers never
// abort the group on record failure, only on cancellation.
func (e *Executor) runConcurrent(ctx context.Context, recs []InputRecord, opts RunOptions, builder *llm.RequestBuilder, normalized llm.CompletionOptions, logger *zap.Logger) ([]OutputRecord, error) {
	results := make([]*OutputRecord, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i := range recs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec := recs[i]
			resp, err := e.step(gctx, builder, normalized, opts, rec)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				cerr := llm.Classify(err)
				e.cfg.Metrics.observeRecord(opts.Operation, StatusFailure)
				r := assembleFailure(i, rec, opts.Operation, opts.Model, cerr)
				results[i] = &r
				return nil
			}
			e.cfg.Metrics.observeRecord(opts.Operation, StatusSuccess)
			r := assembleSuccess(i, rec, opts.Operation, opts.Model, resp)
			results[i] = &r
			return nil
		})
	}
	err := g.Wait()

	// On cancellation, emit only the completed prefix so no record after a
	// hole is reported without its predecessors.
	out := make([]OutputRecord, 0, len(results))
	for _, r := range results {
		if r == nil {
			break
		}
		out = append(out, *r)
	}
	if err != nil {
		logger.Debug("batch cancelled", zap.Int("completed", len(out)))
		return out, err
	}
	logger.Debug("batch done", zap.Int("completed", len(out)))
	return out, nil
}

// step builds and dispatches one record's request. Per-record state is local
// to this call: no memoization, no cross-record caching, at most one remote
// call.
func (e *Executor) step(ctx context.Context, builder *llm.RequestBuilder, normalized llm.CompletionOptions, opts RunOptions, rec InputRecord) (*llm.CompletionResponse, error) {
	desc, err := e.buildRequest(builder, normalized, opts, rec)
	if err != nil {
		return nil, err
	}

	if e.cfg.Counter != nil {
		e.logPromptEstimate(desc, rec.ID)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := e.client.Complete(ctx, desc)
	e.cfg.Metrics.observeCall(opts.Operation, time.Since(start))
	return resp, err
}

func (e *Executor) buildRequest(builder *llm.RequestBuilder, normalized llm.CompletionOptions, opts RunOptions, rec InputRecord) (*llm.RequestDescriptor, error) {
	switch opts.Operation {
	case OpChat:
		return builder.BuildChat(opts.Model, rec.Messages, normalized)
	case OpChatFromPrompt:
		return builder.BuildChatFromPrompt(opts.Model, rec.Prompt, rec.SystemPrompt, normalized)
	case OpText:
		return builder.BuildText(opts.Model, rec.Prompt, normalized)
	default:
		return nil, &llm.Error{
			Code:    llm.ErrInvalidRequest,
			Message: fmt.Sprintf("unknown operation %q", opts.Operation),
		}
	}
}

func (e *Executor) logPromptEstimate(desc *llm.RequestDescriptor, recordID string) {
	var (
		estimate int
		err      error
	)
	if desc.Mode == llm.ModeText {
		estimate, err = e.cfg.Counter.CountTokens(desc.Prompt)
	} else {
		msgs := make([]tokenizer.Message, 0, len(desc.Messages))
		for _, m := range desc.Messages {
			msgs = append(msgs, tokenizer.Message{Role: string(m.Role), Content: m.Content})
		}
		estimate, err = e.cfg.Counter.CountMessages(msgs)
	}
	if err != nil {
		return
	}
	e.logger.Debug("prompt token estimate",
		zap.String("record_id", recordID),
		zap.String("counter", e.cfg.Counter.Name()),
		zap.Int("tokens", estimate))
}
