package calendar

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"FutPull/internal/domain/models"
	"FutPull/pkg/tabular"
	"FutPull/pkg/util"
)

// Calendar is an immutable, sorted list of trading dates.
type Calendar struct {
	dates []time.Time
	index map[string]int
}

// New builds a calendar from dates in any order; duplicates collapse.
func New(dates []time.Time) *Calendar {
	c := &Calendar{index: make(map[string]int, len(dates))}
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		d = util.Midnight(d, models.ExchangeLocation)
		key := util.FormatDate(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		c.dates = append(c.dates, d)
	}
	sort.Slice(c.dates, func(i, j int) bool { return c.dates[i].Before(c.dates[j]) })
	for i, d := range c.dates {
		c.index[util.FormatDate(d)] = i
	}
	return c
}

// Load reads a CSV (optionally gzip-compressed) holding a trade_date column.
func Load(path string) (*Calendar, error) {
	r, err := tabular.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}
	defer r.Close()

	col, err := r.Column("trade_date")
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", path, err)
	}
	var dates []time.Time
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", path, err)
		}
		cell := tabular.Cell(rec, col)
		if cell == "" {
			continue
		}
		d, err := util.ParseDate(cell, models.ExchangeLocation)
		if err != nil {
			return nil, fmt.Errorf("calendar %s line %d: %w", path, r.Line(), err)
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("calendar %s: no trade dates", path)
	}
	return New(dates), nil
}

func (c *Calendar) PrevTradeDate(d time.Time) (time.Time, error) {
	i, err := c.position(d)
	if err != nil {
		return time.Time{}, err
	}
	if i == 0 {
		return time.Time{}, fmt.Errorf("no trade date before %s: %w", util.FormatDate(d), models.ErrDateNotInCalendar)
	}
	return c.dates[i-1], nil
}

func (c *Calendar) NextTradeDate(d time.Time) (time.Time, error) {
	i, err := c.position(d)
	if err != nil {
		return time.Time{}, err
	}
	if i == len(c.dates)-1 {
		return time.Time{}, fmt.Errorf("no trade date after %s: %w", util.FormatDate(d), models.ErrDateNotInCalendar)
	}
	return c.dates[i+1], nil
}

// Range returns the trading dates in [bgn, stp).
func (c *Calendar) Range(bgn, stp time.Time) ([]time.Time, error) {
	if stp.Before(bgn) {
		return nil, fmt.Errorf("range %s-%s: stop before begin", util.FormatDate(bgn), util.FormatDate(stp))
	}
	lo := sort.Search(len(c.dates), func(i int) bool { return !c.dates[i].Before(bgn) })
	hi := sort.Search(len(c.dates), func(i int) bool { return !c.dates[i].Before(stp) })
	return append([]time.Time(nil), c.dates[lo:hi]...), nil
}

func (c *Calendar) position(d time.Time) (int, error) {
	key := util.FormatDate(d.In(models.ExchangeLocation))
	i, ok := c.index[key]
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, models.ErrDateNotInCalendar)
	}
	return i, nil
}
