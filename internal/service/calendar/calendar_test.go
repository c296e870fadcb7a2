package calendar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FutPull/internal/domain/models"
)

func d(s string) time.Time {
	t, err := time.ParseInLocation("20060102", s, models.ExchangeLocation)
	if err != nil {
		panic(err)
	}
	return t
}

func writeCalendar(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendar.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAndNeighbours(t *testing.T) {
	path := writeCalendar(t, "exchange,trade_date\nSSE,20240108\nSSE,20240104\nSSE,20240105\nSSE,20240105\n")
	c, err := Load(path)
	require.NoError(t, err)

	prev, err := c.PrevTradeDate(d("20240108"))
	require.NoError(t, err)
	assert.Equal(t, d("20240105"), prev)

	next, err := c.NextTradeDate(d("20240105"))
	require.NoError(t, err)
	assert.Equal(t, d("20240108"), next)

	_, err = c.PrevTradeDate(d("20240104"))
	assert.True(t, errors.Is(err, models.ErrDateNotInCalendar))
	_, err = c.NextTradeDate(d("20240108"))
	assert.True(t, errors.Is(err, models.ErrDateNotInCalendar))
	_, err = c.PrevTradeDate(d("20240106"))
	assert.True(t, errors.Is(err, models.ErrDateNotInCalendar))
}

func TestRange(t *testing.T) {
	c := New([]time.Time{d("20240102"), d("20240103"), d("20240104"), d("20240105"), d("20240108")})

	got, err := c.Range(d("20240103"), d("20240108"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{d("20240103"), d("20240104"), d("20240105")}, got)

	got, err = c.Range(d("20240106"), d("20240109"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{d("20240108")}, got)

	_, err = c.Range(d("20240105"), d("20240101"))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeCalendar(t, "date\n20240105\n"))
	assert.Error(t, err)

	_, err = Load(writeCalendar(t, "trade_date\n2024-01-05\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
