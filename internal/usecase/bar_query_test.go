package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FutPull/internal/domain/models"
	"FutPull/internal/service/calendar"
	"FutPull/internal/service/instrument"
	"FutPull/internal/services/minutebar"
	"FutPull/internal/services/session"
)

func newQuery(archive *fakeArchive) *BarQuery {
	cal := calendar.New([]time.Time{day("20150529"), day("20150601"), day("20240104"), day("20240105")})
	return NewBarQuery(cal, archive, instrument.NewClassifier(), minutebar.NewEngine(), newFakeMetrics())
}

func TestBarQueryBars(t *testing.T) {
	q := newQuery(&fakeArchive{ticks: map[string][]models.RawTick{"CU2402.SHF": dayTicks()}})

	res, err := q.Bars(context.Background(), "CU2402.SHF", day("20240105"), []string{"close", "vol"})
	require.NoError(t, err)
	assert.Equal(t, "20240105", res.TradeDate)
	assert.Equal(t, []string{"close", "vol"}, res.Table.Fields)
	assert.Equal(t, [][]any{{68010.0, 5.0}, {67990.0, 3.0}}, res.Table.Rows)
	assert.Equal(t, 3, res.Stats.TicksIn)
}

func TestBarQueryErrors(t *testing.T) {
	q := newQuery(&fakeArchive{
		ticks: map[string][]models.RawTick{"XX2402.CFX": dayTicks()},
		errs:  map[string]error{"AL2402.SHF": errors.New("boom")},
	})
	ctx := context.Background()

	_, err := q.Bars(ctx, "CU2402.SHF", day("20240105"), []string{"volume"})
	assert.ErrorIs(t, err, models.ErrUnknownField)

	_, err = q.Bars(ctx, "CU2402.SHF", day("20240105"), nil)
	assert.ErrorIs(t, err, models.ErrEmptyArchive)

	_, err = q.Bars(ctx, "CU2402.SHF", day("20240106"), nil)
	assert.ErrorIs(t, err, models.ErrDateNotInCalendar)

	_, err = q.Bars(ctx, "XX2402.CFX", day("20240105"), nil)
	var uie *models.UnsupportedInstrumentError
	require.ErrorAs(t, err, &uie)
	assert.Equal(t, "XX", uie.Instrument)

	_, err = q.Bars(ctx, "cu-2402", day("20240105"), nil)
	assert.ErrorIs(t, err, models.ErrInvalidContract)

	_, err = q.Bars(ctx, "AL2402.SHF", day("20240105"), nil)
	assert.EqualError(t, err, "boom")
}

func TestBarQueryUnsupportedBeforeArchive(t *testing.T) {
	archive := &fakeArchive{}
	q := newQuery(archive)

	_, err := q.Bars(context.Background(), "XX2402.CFX", day("20240105"), nil)
	assert.ErrorIs(t, err, models.ErrUnsupportedInstrument)
	assert.NotErrorIs(t, err, models.ErrEmptyArchive)
}

func TestBarQuerySession(t *testing.T) {
	q := newQuery(&fakeArchive{})

	p, err := q.Session("IF.CFX", day("20150601"))
	require.NoError(t, err)
	assert.Equal(t, session.KindCfxEquity, p.Kind)
	assert.Equal(t, time.Date(2015, 6, 1, 9, 15, 0, 0, models.ExchangeLocation), p.Windows[0].Begin)

	p, err = q.Session("cu.shf", day("20240105"))
	require.NoError(t, err)
	assert.Equal(t, session.KindNonCfx, p.Kind)
	assert.Len(t, p.Zones, 8)

	_, err = q.Session("XX.CFX", day("20240105"))
	assert.ErrorIs(t, err, models.ErrUnsupportedInstrument)
}
