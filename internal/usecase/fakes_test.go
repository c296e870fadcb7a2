package usecase

import (
	"context"
	"sync"
	"time"

	"FutPull/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation("20060102", s, models.ExchangeLocation)
	if err != nil {
		panic(err)
	}
	return t
}

func oi(v float64) *float64 { return &v }

func dayTicks() []models.RawTick {
	return []models.RawTick{
		{UpdateTime: "09:10:00", LastPrice: 68000, Volume: 10, Turnover: 680000, OpenInterest: oi(1000)},
		{UpdateTime: "09:10:30", LastPrice: 68010, Volume: 15, Turnover: 1020050, OpenInterest: oi(1002)},
		{UpdateTime: "09:11:05", LastPrice: 67990, Volume: 18, Turnover: 1224020, OpenInterest: oi(1001)},
	}
}

type fakeArchive struct {
	ticks map[string][]models.RawTick
	errs  map[string]error
}

func (f *fakeArchive) ReadTicks(_ context.Context, contract string, _ time.Time) ([]models.RawTick, error) {
	if err, ok := f.errs[contract]; ok {
		return nil, err
	}
	if t, ok := f.ticks[contract]; ok {
		return t, nil
	}
	return nil, models.ErrEmptyArchive
}

type fakeUniverse struct {
	contracts []string
	err       error
}

func (f *fakeUniverse) Contracts(context.Context, time.Time) ([]string, error) {
	return f.contracts, f.err
}

type fakeSink struct {
	mu      sync.Mutex
	name    string
	saved   map[string]models.BarBatch
	saveErr error
}

func newFakeSink(name string) *fakeSink {
	return &fakeSink{name: name, saved: make(map[string]models.BarBatch)}
}

func (s *fakeSink) Name() string               { return s.name }
func (s *fakeSink) Init(context.Context) error { return nil }
func (s *fakeSink) Close() error               { return nil }

func (s *fakeSink) Exists(_ context.Context, tradeDate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.saved[tradeDate]
	return ok, nil
}

func (s *fakeSink) Save(_ context.Context, b models.BarBatch) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[b.TradeDate] = b
	return nil
}

type fakeMetrics struct {
	mu     sync.Mutex
	units  map[string]int
	errors map[string]int
	bars   map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{units: map[string]int{}, errors: map[string]int{}, bars: map[string]int{}}
}

func (m *fakeMetrics) RecordUnit(status string) {
	m.mu.Lock()
	m.units[status]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordTicks(int, int) {}

func (m *fakeMetrics) RecordBars(sink string, n int) {
	m.mu.Lock()
	m.bars[sink] += n
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLatency(string, float64) {}
