package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FutPull/internal/domain/models"
	drepo "FutPull/internal/domain/repository"
	"FutPull/internal/repository"
	"FutPull/internal/service/calendar"
	"FutPull/internal/service/instrument"
	"FutPull/internal/services/minutebar"
	"FutPull/pkg/cache"
)

type builderFixture struct {
	archive  *fakeArchive
	universe *fakeUniverse
	sink     *fakeSink
	metrics  *fakeMetrics
	store    *cache.MemoryCache
	builder  *MinuteBarBuilder
}

func newBuilderFixture(t *testing.T, fields ...string) *builderFixture {
	t.Helper()
	f := &builderFixture{
		archive: &fakeArchive{
			ticks: map[string][]models.RawTick{
				"CU2402.SHF": dayTicks(),
				"XX2402.CFX": dayTicks(),
			},
		},
		universe: &fakeUniverse{contracts: []string{"AL2402.SHF", "CU2402.SHF", "XX2402.CFX"}},
		sink:     newFakeSink("memory"),
		metrics:  newFakeMetrics(),
		store:    cache.NewMemoryCache(),
	}
	t.Cleanup(func() { _ = f.store.Close() })

	cal := calendar.New([]time.Time{day("20240103"), day("20240104"), day("20240105"), day("20240108"), day("20240109")})
	f.builder = NewMinuteBarBuilder(
		cal,
		f.universe,
		f.archive,
		instrument.NewClassifier(),
		minutebar.NewEngine(),
		NewBarWriter([]drepo.BarSink{f.sink}, f.metrics, nil),
		repository.NewCacheProgressStore(f.store, 0),
		f.store,
		f.metrics,
		BuilderConfig{Workers: 2, Fields: fields},
		nil,
	)
	return f
}

func TestBuilderRunIsolatesUnitFailures(t *testing.T) {
	f := newBuilderFixture(t)
	report, err := f.builder.Run(context.Background(), day("20240104"), day("20240109"))
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Dates, 3)
	assert.Empty(t, report.FailedDates())

	dr := report.Dates[1]
	assert.Equal(t, "20240105", dr.TradeDate)
	assert.Equal(t, StatusBuilt, dr.Status)
	assert.Equal(t, 3, dr.Contracts)
	assert.Equal(t, 2, dr.Succeeded)
	assert.Equal(t, 1, dr.Failed)
	require.Len(t, dr.Failures, 1)
	assert.Equal(t, "XX2402.CFX", dr.Failures[0].Contract)
	assert.Contains(t, dr.Failures[0].Reason, "unsupported instrument")
	assert.Equal(t, 2, dr.Bars)

	batch := f.sink.saved["20240105"]
	require.Len(t, batch.Records, 2)
	assert.Equal(t, "CU2402.SHF", batch.Records[0].TsCode)
	assert.Equal(t, time.Date(2024, 1, 5, 9, 10, 0, 0, models.ExchangeLocation), batch.Records[0].Timestamp)
	assert.Equal(t, 5.0, batch.Records[0].Vol)
	assert.Equal(t, 68010.0, batch.Records[0].Close)
	assert.Equal(t, models.BarFields, batch.Table.Fields)

	assert.Equal(t, 3, f.metrics.units["failed"])
	assert.Equal(t, 3, f.metrics.units["empty"])
	assert.Equal(t, 3, f.metrics.errors["unsupported_instrument"])
	assert.Equal(t, 6, f.metrics.bars["memory"])
}

func TestBuilderSkipsFinishedDates(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "progress:20240104", "done", time.Hour))
	f.sink.saved["20240105"] = models.BarBatch{TradeDate: "20240105"}

	report, err := f.builder.Run(ctx, day("20240104"), day("20240108"))
	require.NoError(t, err)
	require.Len(t, report.Dates, 2)
	assert.Equal(t, StatusSkipped, report.Dates[0].Status)
	assert.Equal(t, StatusSkipped, report.Dates[1].Status)
	assert.Empty(t, f.metrics.units)
}

func TestBuilderMarksProgress(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()
	_, err := f.builder.Run(ctx, day("20240105"), day("20240108"))
	require.NoError(t, err)

	done, err := f.store.Exists(ctx, "progress:20240105")
	require.NoError(t, err)
	assert.True(t, done)

	report, err := f.builder.Run(ctx, day("20240105"), day("20240108"))
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, report.Dates[0].Status)
}

func TestBuilderLockedDate(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()
	ok, err := f.store.TryLock(ctx, "lock:build:20240105", "other-run", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	report, err := f.builder.Run(ctx, day("20240105"), day("20240108"))
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, report.Dates[0].Status)
	assert.Empty(t, f.sink.saved)
	assert.ErrorIs(t, f.store.Unlock(ctx, "lock:build:20240105", report.RunID), cache.ErrLockNotHeld)
	assert.NoError(t, f.store.Unlock(ctx, "lock:build:20240105", "other-run"))
}

type recordingLocker struct {
	*cache.MemoryCache
	tokens []string
}

func (r *recordingLocker) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	r.tokens = append(r.tokens, token)
	return r.MemoryCache.TryLock(ctx, key, token, ttl)
}

func TestBuilderLocksWithRunID(t *testing.T) {
	f := newBuilderFixture(t)
	locker := &recordingLocker{MemoryCache: f.store}
	f.builder.locker = locker

	report, err := f.builder.Run(context.Background(), day("20240104"), day("20240108"))
	require.NoError(t, err)
	assert.Equal(t, []string{report.RunID, report.RunID}, locker.tokens)

	ok, err := f.store.TryLock(context.Background(), "lock:build:20240105", "next-run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock released after the date was built")
}

func TestBuilderSaveFailure(t *testing.T) {
	f := newBuilderFixture(t)
	f.sink.saveErr = errors.New("disk full")

	report, err := f.builder.Run(context.Background(), day("20240104"), day("20240108"))
	require.NoError(t, err)
	assert.Equal(t, []string{"20240104", "20240105"}, report.FailedDates())
	assert.Contains(t, report.Dates[0].Err, "disk full")
	assert.Equal(t, 2, f.metrics.errors["save_memory"])

	done, err := f.store.Exists(context.Background(), "progress:20240104")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestBuilderUniverseFailure(t *testing.T) {
	f := newBuilderFixture(t)
	f.universe.err = errors.New("no daily files")

	report, err := f.builder.Run(context.Background(), day("20240105"), day("20240108"))
	require.NoError(t, err)
	require.Len(t, report.Dates, 1)
	assert.Equal(t, StatusFailed, report.Dates[0].Status)
	assert.Contains(t, report.Dates[0].Err, "universe")
}

func TestBuilderArchiveFailureIsPerUnit(t *testing.T) {
	f := newBuilderFixture(t)
	f.archive.errs = map[string]error{"AL2402.SHF": errors.New("io timeout")}

	report, err := f.builder.Run(context.Background(), day("20240105"), day("20240108"))
	require.NoError(t, err)
	dr := report.Dates[0]
	assert.Equal(t, StatusFailed, dr.Status)
	assert.Equal(t, 1, dr.Succeeded)
	assert.Equal(t, 2, dr.Failed)
	assert.Contains(t, dr.Err, "1 of 3 units failed")
	assert.Equal(t, []string{"20240105"}, report.FailedDates())
	assert.Equal(t, 1, f.metrics.errors["archive"])
	assert.Empty(t, f.sink.saved)
}

func TestBuilderRebuildsDateAfterTransientFailure(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()
	f.archive.errs = map[string]error{"CU2402.SHF": errors.New("io timeout")}

	report, err := f.builder.Run(ctx, day("20240105"), day("20240108"))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, report.Dates[0].Status)
	done, err := f.store.Exists(ctx, "progress:20240105")
	require.NoError(t, err)
	assert.False(t, done)

	f.archive.errs = nil
	report, err = f.builder.Run(ctx, day("20240105"), day("20240108"))
	require.NoError(t, err)
	dr := report.Dates[0]
	assert.Equal(t, StatusBuilt, dr.Status)
	assert.Equal(t, 2, dr.Bars)
	require.Len(t, f.sink.saved["20240105"].Records, 2)
	assert.Equal(t, "CU2402.SHF", f.sink.saved["20240105"].Records[0].TsCode)
}

func TestPermanent(t *testing.T) {
	assert.True(t, Permanent(&models.UnsupportedInstrumentError{Exchange: "CFX", Instrument: "XX"}))
	assert.True(t, Permanent(fmt.Errorf("classify: %w", models.ErrInvalidContract)))
	assert.False(t, Permanent(models.ErrMalformedTick))
	assert.False(t, Permanent(errors.New("io timeout")))
}

func TestBuilderProjectsFields(t *testing.T) {
	f := newBuilderFixture(t, models.FieldTimestamp, models.FieldClose)
	_, err := f.builder.Run(context.Background(), day("20240105"), day("20240108"))
	require.NoError(t, err)

	table := f.sink.saved["20240105"].Table
	assert.Equal(t, []string{"timestamp", "close"}, table.Fields)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, 68010.0, table.Rows[0][1])
}

func TestBuilderRejectsUnknownField(t *testing.T) {
	f := newBuilderFixture(t, "volume")
	_, err := f.builder.Run(context.Background(), day("20240105"), day("20240108"))
	assert.ErrorIs(t, err, models.ErrUnknownField)
	assert.Empty(t, f.sink.saved)
}

func TestBuilderCanceled(t *testing.T) {
	f := newBuilderFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.builder.Run(ctx, day("20240104"), day("20240109"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Dates)
	assert.Empty(t, f.sink.saved)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "unsupported_instrument", ErrorKind(&models.UnsupportedInstrumentError{Exchange: "CFX", Instrument: "XX"}))
	assert.Equal(t, "malformed_tick", ErrorKind(models.ErrMalformedTick))
	assert.Equal(t, "canceled", ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, "archive", ErrorKind(errors.New("x")))
}
