package minutebar

import (
	"fmt"

	"FutPull/internal/domain/models"
)

// Format drops incomplete bars and stamps the rest with contract and trade
// date. The second result is the number of bars dropped.
func Format(bars []models.MinuteBar, contract string, tradeDate string) ([]models.BarRecord, int) {
	records := make([]models.BarRecord, 0, len(bars))
	for _, b := range bars {
		if !b.Complete() {
			continue
		}
		records = append(records, models.BarRecord{
			Timestamp: b.Timestamp,
			TsCode:    contract,
			TradeDate: tradeDate,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Vol:       b.Volume,
			Amount:    b.Turnover,
			OI:        *b.OpenInterest,
		})
	}
	return records, len(bars) - len(records)
}

// ResolveFields validates a caller field list and drops repeats. An empty
// list selects the whole vocabulary in canonical order.
func ResolveFields(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return append([]string(nil), models.BarFields...), nil
	}
	known := make(map[string]bool, len(models.BarFields))
	for _, f := range models.BarFields {
		known[f] = true
	}
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !known[f] {
			return nil, fmt.Errorf("field %q: %w", f, models.ErrUnknownField)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Project lays records out as rows in the order of fields.
func Project(records []models.BarRecord, fields []string) (models.BarTable, error) {
	cols, err := ResolveFields(fields)
	if err != nil {
		return models.BarTable{}, err
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		row := make([]any, len(cols))
		for i, f := range cols {
			row[i], _ = r.Field(f)
		}
		rows = append(rows, row)
	}
	return models.BarTable{Fields: cols, Rows: rows}, nil
}

// Batch bundles the records of one trade date with their projection.
func Batch(tradeDate string, records []models.BarRecord, fields []string) (models.BarBatch, error) {
	table, err := Project(records, fields)
	if err != nil {
		return models.BarBatch{}, err
	}
	return models.BarBatch{TradeDate: tradeDate, Records: records, Table: table}, nil
}
