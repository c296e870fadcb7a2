package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"FutPull/internal/domain/models"
	"FutPull/internal/domain/repository"
	pkgch "FutPull/pkg/clickhouse"
	applogger "FutPull/pkg/logger"
)

// SQLExecer is the part of *sql.DB the sink needs.
type SQLExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ClickHouseBarSink stores the canonical bar columns in {database}.minute_bars.
// Projection does not apply; the table always carries every field.
type ClickHouseBarSink struct {
	db        SQLExecer
	database  string
	table     string
	batchSize int
	l         *applogger.Logger
}

func NewClickHouseBarSink(db SQLExecer, database string, batchSize int, l *applogger.Logger) repository.BarSink {
	if batchSize <= 0 {
		batchSize = 2000
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &ClickHouseBarSink{db: db, database: database, table: database + ".minute_bars", batchSize: batchSize, l: l}
}

// MinuteBarSchema returns the DDL for database. ReplacingMergeTree keeps a
// re-run of the same date from duplicating rows after merges.
func MinuteBarSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.minute_bars (
    timestamp  DateTime64(3, 'Asia/Shanghai'),
    ts_code    LowCardinality(String),
    trade_date String,
    open       Float64,
    high       Float64,
    low        Float64,
    close      Float64,
    vol        Float64,
    amount     Float64,
    oi         Float64
) ENGINE = ReplacingMergeTree
PARTITION BY substring(trade_date, 1, 6)
ORDER BY (trade_date, ts_code, timestamp)`, database),
	}
}

func (s *ClickHouseBarSink) Name() string { return "clickhouse" }

func (s *ClickHouseBarSink) Init(ctx context.Context) error {
	return pkgch.InitSchema(ctx, s.db, MinuteBarSchema(s.database))
}

func (s *ClickHouseBarSink) Close() error { return nil }

func (s *ClickHouseBarSink) Exists(ctx context.Context, tradeDate string) (bool, error) {
	var n uint64
	q := fmt.Sprintf("SELECT count() FROM %s WHERE trade_date = ?", s.table)
	if err := s.db.QueryRowContext(ctx, q, tradeDate).Scan(&n); err != nil {
		return false, fmt.Errorf("count bars: %w", err)
	}
	return n > 0, nil
}

// Save inserts records in multi-row VALUES chunks.
func (s *ClickHouseBarSink) Save(ctx context.Context, batch models.BarBatch) error {
	const cols = "(timestamp, ts_code, trade_date, open, high, low, close, vol, amount, oi)"
	const placeholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for start := 0; start < len(batch.Records); start += s.batchSize {
		end := min(start+s.batchSize, len(batch.Records))
		chunk := batch.Records[start:end]

		values := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*10)
		for i, r := range chunk {
			values[i] = placeholder
			args = append(args, r.Timestamp, r.TsCode, r.TradeDate, r.Open, r.High, r.Low, r.Close, r.Vol, r.Amount, r.OI)
		}
		q := fmt.Sprintf("INSERT INTO %s %s VALUES %s", s.table, cols, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert failed",
				applogger.String("table", s.table),
				applogger.String("trade_date", batch.TradeDate),
				applogger.Int("rows", len(chunk)),
				applogger.Error(err),
			)
			return fmt.Errorf("insert bars: %w", err)
		}
	}
	return nil
}
