package ingestion

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ingest/internal/broker"
	"ingest/internal/broker/brokertest"
	"ingest/internal/config"
	"ingest/internal/logger"
	"ingest/pkg/errors"
	"ingest/pkg/models"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, bus broker.Producer, workers int) *Service {
	t.Helper()
	svc, err := NewService(bus, config.IngestionConfig{BatchWorkers: workers}, logger.NopLogger(),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(time.Second) })
	return svc
}

func validRecord(id, contentType string) models.Record {
	return models.NewRecordBuilder().
		WithID(id).
		WithSource("arxiv").
		WithContentType(contentType).
		WithRawPayload(json.RawMessage(`{"title":"x"}`)).
		Build()
}

func withID(id string) interface{} {
	return mock.MatchedBy(func(r models.Record) bool { return r.ID == id })
}

func TestIngestOne(t *testing.T) {
	t.Run("publishes valid record to its topic", func(t *testing.T) {
		bus := brokertest.NewMockBus()
		bus.On("Publish", mock.Anything, "ingest.raw.research_paper", withID("rec-1")).Return(nil).Once()
		svc := newTestService(t, bus, 1)

		out, err := svc.IngestOne(context.Background(), validRecord("rec-1", "research_paper"))
		require.NoError(t, err)

		assert.Equal(t, models.StatusSuccess, out.Status)
		assert.Equal(t, "rec-1", out.ID)
		assert.Equal(t, fixedNow, out.Timestamp)
		bus.AssertExpectations(t)

		published := bus.Published()
		require.Len(t, published, 1)
		assert.Equal(t, "rec-1", published[0].Record.ID)
		assert.JSONEq(t, `{}`, string(published[0].Record.Metadata))
	})

	t.Run("generates id when absent", func(t *testing.T) {
		bus := brokertest.NewMockBus()
		bus.On("Publish", mock.Anything, "ingest.raw.news", mock.Anything).Return(nil).Once()
		svc := newTestService(t, bus, 1)

		out, err := svc.IngestOne(context.Background(), validRecord("", "news"))
		require.NoError(t, err)

		assert.NotEmpty(t, out.ID)
		published := bus.Published()
		require.Len(t, published, 1)
		assert.Equal(t, out.ID, published[0].Record.ID)
	})

	t.Run("keeps caller timestamp", func(t *testing.T) {
		ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
		bus := brokertest.NewMockBus()
		bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		svc := newTestService(t, bus, 1)

		rec := validRecord("rec-ts", "news")
		rec.Timestamp = ts

		out, err := svc.IngestOne(context.Background(), rec)
		require.NoError(t, err)
		assert.Equal(t, ts, out.Timestamp)
	})

	invalid := []struct {
		name   string
		record models.Record
		reason string
	}{
		{"empty source", models.Record{ContentType: "c", Payload: json.RawMessage(`1`)}, ReasonSourceEmpty},
		{"empty content type", models.Record{Source: "s", Payload: json.RawMessage(`1`)}, ReasonContentTypeEmpty},
		{"null payload", models.Record{Source: "s", ContentType: "c", Payload: json.RawMessage(`null`)}, ReasonPayloadNull},
	}
	for _, tt := range invalid {
		t.Run("rejects "+tt.name+" without publishing", func(t *testing.T) {
			bus := brokertest.NewMockBus()
			svc := newTestService(t, bus, 1)

			_, err := svc.IngestOne(context.Background(), tt.record)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Equal(t, tt.reason, errors.ToErrorResponse(err).Error.Message)
			bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("surfaces publish failure once without retry", func(t *testing.T) {
		bus := brokertest.NewMockBus()
		bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.ErrPublish.WithCause(fmt.Errorf("broker down"))).Once()
		svc := newTestService(t, bus, 1)

		_, err := svc.IngestOne(context.Background(), validRecord("rec-2", "news"))
		require.Error(t, err)
		assert.Equal(t, 502, errors.ToHTTPStatus(err))
		bus.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("wraps unknown publish errors", func(t *testing.T) {
		bus := brokertest.NewMockBus()
		bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(stderrors.New("boom")).Once()
		svc := newTestService(t, bus, 1)

		_, err := svc.IngestOne(context.Background(), validRecord("rec-3", "news"))
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrPublish))
		assert.Equal(t, "failed to publish record", errors.ToErrorResponse(err).Error.Message)
	})

	t.Run("keeps service unavailable status", func(t *testing.T) {
		bus := brokertest.NewMockBus()
		bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.ErrServiceUnavailable).Once()
		svc := newTestService(t, bus, 1)

		_, err := svc.IngestOne(context.Background(), validRecord("rec-4", "news"))
		assert.Equal(t, 503, errors.ToHTTPStatus(err))
	})
}

func TestIngestBatch(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			t.Run("empty batch rejected without publishing", func(t *testing.T) {
				bus := brokertest.NewMockBus()
				svc := newTestService(t, bus, workers)

				_, err := svc.IngestBatch(context.Background(), nil)
				require.Error(t, err)
				assert.Equal(t, 400, errors.ToHTTPStatus(err))

				_, err = svc.IngestBatch(context.Background(), []models.Record{})
				require.Error(t, err)
				bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
			})

			t.Run("skips invalid item and keeps order", func(t *testing.T) {
				bus := brokertest.NewMockBus()
				bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				svc := newTestService(t, bus, workers)

				invalid := validRecord("b", "news")
				invalid.Source = ""

				out, err := svc.IngestBatch(context.Background(), []models.Record{
					validRecord("a", "news"),
					invalid,
					validRecord("c", "research_paper"),
				})
				require.NoError(t, err)

				assert.Equal(t, models.StatusSuccess, out.Status)
				assert.Equal(t, 2, out.Count)
				assert.Equal(t, []string{"a", "c"}, out.IDs)
				assert.Equal(t, fixedNow, out.Timestamp)
				bus.AssertNumberOfCalls(t, "Publish", 2)
			})

			t.Run("publish failures skipped without aborting", func(t *testing.T) {
				bus := brokertest.NewMockBus()
				bus.On("Publish", mock.Anything, mock.Anything, withID("2")).Return(errors.ErrPublish)
				bus.On("Publish", mock.Anything, mock.Anything, withID("4")).Return(errors.ErrServiceUnavailable)
				bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				svc := newTestService(t, bus, workers)

				items := make([]models.Record, 0, 6)
				for i := 1; i <= 6; i++ {
					items = append(items, validRecord(fmt.Sprint(i), "news"))
				}

				out, err := svc.IngestBatch(context.Background(), items)
				require.NoError(t, err)
				assert.Equal(t, 4, out.Count)
				assert.Equal(t, []string{"1", "3", "5", "6"}, out.IDs)
				bus.AssertNumberOfCalls(t, "Publish", 6)
			})

			t.Run("all invalid returns zero count with empty ids", func(t *testing.T) {
				bus := brokertest.NewMockBus()
				svc := newTestService(t, bus, workers)

				out, err := svc.IngestBatch(context.Background(), []models.Record{
					{Source: "", ContentType: "x", Payload: json.RawMessage(`1`)},
					{Source: "s", ContentType: "", Payload: json.RawMessage(`1`)},
					{Source: "s", ContentType: "x"},
				})
				require.NoError(t, err)
				assert.Equal(t, 0, out.Count)
				assert.NotNil(t, out.IDs)
				assert.Empty(t, out.IDs)
				bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
			})

			t.Run("generated ids are reported", func(t *testing.T) {
				bus := brokertest.NewMockBus()
				bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				svc := newTestService(t, bus, workers)

				out, err := svc.IngestBatch(context.Background(), []models.Record{
					validRecord("", "news"),
					validRecord("", "news"),
				})
				require.NoError(t, err)
				require.Len(t, out.IDs, 2)
				assert.NotEmpty(t, out.IDs[0])
				assert.NotEqual(t, out.IDs[0], out.IDs[1])
			})

			t.Run("runs to completion after caller cancels", func(t *testing.T) {
				bus := brokertest.NewMockBus()
				bus.On("Publish", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything, mock.Anything).Return(nil)
				svc := newTestService(t, bus, workers)

				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				out, err := svc.IngestBatch(ctx, []models.Record{validRecord("a", "news"), validRecord("b", "news")})
				require.NoError(t, err)
				assert.Equal(t, []string{"a", "b"}, out.IDs)
			})

			t.Run("panicking publish only drops its item", func(t *testing.T) {
				bus := brokertest.NewMockBus()
				bus.On("Publish", mock.Anything, mock.Anything, withID("boom")).Run(func(mock.Arguments) {
					panic("publisher exploded")
				}).Return(nil)
				bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				svc := newTestService(t, bus, workers)

				out, err := svc.IngestBatch(context.Background(), []models.Record{
					validRecord("a", "news"),
					validRecord("boom", "news"),
					validRecord("c", "news"),
				})
				require.NoError(t, err)
				assert.Equal(t, []string{"a", "c"}, out.IDs)
			})
		})
	}
}

func TestIngestBatchLargeConcurrentOrder(t *testing.T) {
	bus := brokertest.NewMockBus()
	bus.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(r models.Record) bool {
		return r.ID[len(r.ID)-1] == '7'
	})).Return(errors.ErrPublish)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, bus, 8)

	items := make([]models.Record, 0, 200)
	want := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("item-%03d", i)
		items = append(items, validRecord(id, "news"))
		if i%10 != 7 {
			want = append(want, id)
		}
	}

	out, err := svc.IngestBatch(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, len(want), out.Count)
	assert.Equal(t, want, out.IDs)
}
