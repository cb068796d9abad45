package ingestion

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ingest/internal/broker"
	"ingest/internal/config"
	"ingest/internal/constants"
	"ingest/internal/logger"
	"ingest/pkg/errors"
	"ingest/pkg/logging"
	"ingest/pkg/metrics"
	"ingest/pkg/models"
	"ingest/pkg/tracing"
)

type Service struct {
	producer broker.Producer
	pool     *ants.Pool
	logger   logger.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

// WithClock replaces time.Now for defaulted timestamps and batch completion times.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService builds the ingestion pipeline on top of producer. With more than
// one batch worker, batch items are published concurrently by a shared pool.
func NewService(producer broker.Producer, cfg config.IngestionConfig, log logger.Logger, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		producer: producer,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.BatchWorkers > 1 {
		pool, err := ants.NewPool(cfg.BatchWorkers,
			ants.WithPanicHandler(func(r interface{}) {
				log.Errorw("Batch worker panicked", "error", r)
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create batch worker pool: %w", err)
		}
		s.pool = pool
	}

	return s, nil
}

// IngestOne validates, routes and publishes a single record. It returns a
// validation error without publishing, or the publish error unchanged.
func (s *Service) IngestOne(ctx context.Context, rec models.Record) (models.IngestOutcome, error) {
	rec = ApplyDefaults(rec, s.now())
	ctx = logging.WithRecordID(ctx, rec.ID)

	ctx, span := tracing.StartSpan(ctx, "ingestion.ingest_one")
	defer span.End()
	ctx = withTraceID(ctx, span)
	span.SetAttributes(
		attribute.String("record.id", rec.ID),
		attribute.String("record.content_type", rec.ContentType),
	)

	if err := s.publishRecord(ctx, rec, constants.EndpointSingle); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.IngestOutcome{}, err
	}

	return models.IngestOutcome{
		Status:    models.StatusSuccess,
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
	}, nil
}

// IngestBatch processes every item independently and reports the ids that were
// published, in input order. Only an empty batch is rejected as a whole. Once
// started, a batch runs to completion even if the caller goes away.
func (s *Service) IngestBatch(ctx context.Context, items []models.Record) (models.BatchOutcome, error) {
	if len(items) == 0 {
		return models.BatchOutcome{}, errors.ErrValidation.WithMessage("batch contains no items")
	}

	ctx = context.WithoutCancel(ctx)
	ctx, span := tracing.StartSpan(ctx, "ingestion.ingest_batch")
	defer span.End()
	ctx = withTraceID(ctx, span)
	span.SetAttributes(attribute.Int("batch.size", len(items)))

	metrics.ObserveBatchSize(len(items))

	var results []ItemResult
	if s.pool != nil && len(items) > 1 {
		results = s.processConcurrently(ctx, items)
	} else {
		results = s.processSequentially(ctx, items)
	}

	outcome := Aggregate(results, s.now())
	span.SetAttributes(attribute.Int("batch.published", outcome.Count))

	s.logger.InfowCtx(ctx, "Batch processed",
		"items", len(items),
		"published", outcome.Count,
		"skipped", len(items)-outcome.Count,
	)
	return outcome, nil
}

func (s *Service) processSequentially(ctx context.Context, items []models.Record) []ItemResult {
	results := make([]ItemResult, len(items))
	for i, item := range items {
		results[i] = s.processItem(ctx, i, item)
	}
	return results
}

// processConcurrently writes each result into its input slot, so the slice is
// already in input order when every worker has finished.
func (s *Service) processConcurrently(ctx context.Context, items []models.Record) []ItemResult {
	results := make([]ItemResult, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = s.processItem(ctx, i, item)
		}
		if err := s.pool.Submit(task); err != nil {
			s.logger.WarnwCtx(ctx, "Batch worker pool unavailable, processing item inline",
				"index", i,
				"error", err,
			)
			task()
		}
	}

	wg.Wait()
	return results
}

func (s *Service) processItem(ctx context.Context, index int, item models.Record) (result ItemResult) {
	rec := ApplyDefaults(item, s.now())
	ctx = logging.WithRecordID(ctx, rec.ID)
	result = ItemResult{Index: index, ID: rec.ID}

	defer func() {
		if r := recover(); r != nil {
			err := errors.RecoverPanic(r)
			s.logger.ErrorwCtx(ctx, "Panic while processing batch item",
				"index", index,
				"error", err,
				"stack", errors.PanicStack(err),
			)
			metrics.IncIngestRecord(constants.EndpointBatch, constants.OutcomeFailed)
			result.Outcome = constants.OutcomeFailed
			result.Err = err
		}
	}()

	if err := s.publishRecord(ctx, rec, constants.EndpointBatch); err != nil {
		result.Outcome = constants.OutcomeFailed
		if errors.IsValidation(err) {
			result.Outcome = constants.OutcomeInvalid
		}
		result.Err = err
		return result
	}

	result.Outcome = constants.OutcomePublished
	return result
}

func (s *Service) publishRecord(ctx context.Context, rec models.Record, endpoint string) error {
	if err := Validate(rec); err != nil {
		metrics.IncIngestRecord(endpoint, constants.OutcomeInvalid)
		s.logger.WarnwCtx(ctx, "Record rejected by validation",
			"endpoint", endpoint,
			"reason", errors.ToErrorResponse(err).Error.Message,
			"source", rec.Source,
			"content_type", rec.ContentType,
		)
		return err
	}

	topic := Route(rec.ContentType)
	if err := s.producer.Publish(ctx, topic, rec); err != nil {
		metrics.IncIngestRecord(endpoint, constants.OutcomeFailed)
		s.logger.ErrorwCtx(ctx, "Failed to publish record",
			"endpoint", endpoint,
			"topic", topic,
			"error", err,
		)

		var appErr *errors.Error
		if !stderrors.As(err, &appErr) {
			return errors.ErrPublish.WithCause(err)
		}
		return err
	}

	metrics.IncIngestRecord(endpoint, constants.OutcomePublished)
	s.logger.DebugwCtx(ctx, "Record published",
		"endpoint", endpoint,
		"topic", topic,
	)
	return nil
}

func withTraceID(ctx context.Context, span trace.Span) context.Context {
	if sc := span.SpanContext(); sc.HasTraceID() {
		return logging.WithTraceID(ctx, sc.TraceID().String())
	}
	return ctx
}

// Close releases the batch worker pool, waiting for in-flight items up to timeout.
func (s *Service) Close(timeout time.Duration) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.ReleaseTimeout(timeout)
}
