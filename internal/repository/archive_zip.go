package repository

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"FutPull/internal/domain/models"
	"FutPull/internal/domain/repository"
	"FutPull/internal/service/instrument"
	applogger "FutPull/pkg/logger"
	"FutPull/pkg/tabular"
)

var tickColumns = []string{"UpdateTime", "UpdateMillisec", "LastPrice", "Volume", "Turnover", "OpenInterest"}

// ZipTickArchive reads vendor tick files out of monthly zip archives laid
// out as {root}/{yyyy}/{yyyymm}.zip with members
// {yyyymm}/{yyyymmdd}/{ctp}_{yyyymmdd}.csv.
type ZipTickArchive struct {
	root     string
	retryMax int
	backoff  time.Duration
	l        *applogger.Logger
}

func NewZipTickArchive(root string, retryMax int, backoff time.Duration, l *applogger.Logger) repository.TickArchive {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ZipTickArchive{root: root, retryMax: retryMax, backoff: backoff, l: l}
}

func (a *ZipTickArchive) ReadTicks(ctx context.Context, contract string, tradeDate time.Time) ([]models.RawTick, error) {
	ctp, err := instrument.CTPCode(contract)
	if err != nil {
		return nil, err
	}
	date := tradeDate.Format("20060102")
	month := date[:6]
	zipPath := filepath.Join(a.root, date[:4], month+".zip")
	member := path.Join(month, date, ctp+"_"+date+".csv")

	zr, err := a.open(ctx, zipPath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	f, err := zr.Open(member)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s in %s: %w", member, zipPath, models.ErrEmptyArchive)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", member, err)
	}
	defer f.Close()

	ticks, err := parseTicks(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", member, err)
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("%s: %w", member, models.ErrEmptyArchive)
	}
	return ticks, nil
}

// open retries transient failures with a linear backoff. A missing archive
// is final.
func (a *ZipTickArchive) open(ctx context.Context, zipPath string) (*zip.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt <= a.retryMax; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * a.backoff
			a.l.Warn("tick archive open failed, retrying",
				applogger.String("path", zipPath),
				applogger.Int("attempt", attempt),
				applogger.Duration("wait_ms", wait),
				applogger.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		zr, err := zip.OpenReader(zipPath)
		if err == nil {
			return zr, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", zipPath, models.ErrEmptyArchive)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("open %s after %d attempts: %w", zipPath, a.retryMax+1, lastErr)
}

func parseTicks(r io.Reader) ([]models.RawTick, error) {
	tr, err := tabular.NewReader(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	cols, err := tr.Columns(tickColumns...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedTick, err)
	}

	var ticks []models.RawTick
	for {
		rec, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return ticks, nil
		}
		if err != nil {
			return nil, err
		}
		tick, err := parseTick(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", tr.Line(), err)
		}
		ticks = append(ticks, tick)
	}
}

func parseTick(rec []string, cols []int) (models.RawTick, error) {
	var (
		t   models.RawTick
		err error
	)
	t.UpdateTime = tabular.Cell(rec, cols[0])
	if t.UpdateTime == "" {
		return t, fmt.Errorf("empty UpdateTime: %w", models.ErrMalformedTick)
	}
	ms := tabular.Cell(rec, cols[1])
	if t.UpdateMillisec, err = strconv.Atoi(ms); err != nil {
		return t, fmt.Errorf("UpdateMillisec %q: %w", ms, models.ErrMalformedTick)
	}
	for i, dst := range []*float64{&t.LastPrice, &t.Volume, &t.Turnover} {
		cell := tabular.Cell(rec, cols[2+i])
		if *dst, err = strconv.ParseFloat(cell, 64); err != nil {
			return t, fmt.Errorf("%s %q: %w", tickColumns[2+i], cell, models.ErrMalformedTick)
		}
	}
	if cell := tabular.Cell(rec, cols[5]); cell != "" {
		oi, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return t, fmt.Errorf("OpenInterest %q: %w", cell, models.ErrMalformedTick)
		}
		t.OpenInterest = &oi
	}
	return t, nil
}
