package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"FutPull/internal/domain/models"
	"FutPull/internal/domain/repository"
)

const csvTimeLayout = "2006-01-02 15:04:05"

// FileBarSink writes one file per trade date at
// {root}/{yyyy}/{yyyymmdd}/{prefix}_{yyyymmdd}.{format}.
type FileBarSink struct {
	root   string
	prefix string
	format string
}

func NewFileBarSink(root, prefix, format string) (repository.BarSink, error) {
	switch format {
	case "csv", "json", "parquet":
	default:
		return nil, fmt.Errorf("%q: %w", format, models.ErrUnsupportedFormat)
	}
	return &FileBarSink{root: root, prefix: prefix, format: format}, nil
}

func (s *FileBarSink) Name() string { return "file" }

func (s *FileBarSink) Init(context.Context) error {
	return os.MkdirAll(s.root, 0o755)
}

func (s *FileBarSink) Close() error { return nil }

// Path is where the bars of tradeDate live.
func (s *FileBarSink) Path(tradeDate string) string {
	return filepath.Join(s.root, tradeDate[:4], tradeDate, fmt.Sprintf("%s_%s.%s", s.prefix, tradeDate, s.format))
}

func (s *FileBarSink) Exists(_ context.Context, tradeDate string) (bool, error) {
	_, err := os.Stat(s.Path(tradeDate))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Save writes to a temporary file and renames it into place. Exists never
// sees a partial file.
func (s *FileBarSink) Save(_ context.Context, batch models.BarBatch) error {
	dst := s.Path(batch.TradeDate)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	switch s.format {
	case "csv":
		err = writeCSV(w, batch.Table)
	case "json":
		err = writeJSON(w, batch.Table)
	case "parquet":
		err = writeParquet(w, batch.Table)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return os.Rename(tmp.Name(), dst)
}

func formatCell(v any) string {
	switch x := v.(type) {
	case time.Time:
		return x.Format(csvTimeLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func writeCSV(w io.Writer, t models.BarTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Fields); err != nil {
		return err
	}
	rec := make([]string, len(t.Fields))
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON emits an array of objects whose keys keep the table order.
func writeJSON(w io.Writer, t models.BarTable) error {
	keys := make([][]byte, len(t.Fields))
	for i, f := range t.Fields {
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		keys[i] = b
	}
	bw := &errWriter{w: w}
	bw.write([]byte("["))
	for r, row := range t.Rows {
		if r > 0 {
			bw.write([]byte(",\n"))
		}
		bw.write([]byte("{"))
		for i, v := range row {
			if i > 0 {
				bw.write([]byte(","))
			}
			if tv, ok := v.(time.Time); ok {
				v = tv.Format(csvTimeLayout)
			}
			val, err := json.Marshal(v)
			if err != nil {
				return err
			}
			bw.write(keys[i])
			bw.write([]byte(":"))
			bw.write(val)
		}
		bw.write([]byte("}"))
	}
	bw.write([]byte("]\n"))
	return bw.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) write(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

// parquetNode maps a bar field onto a parquet column type.
func parquetNode(field string) parquet.Node {
	switch field {
	case models.FieldTimestamp:
		return parquet.Timestamp(parquet.Millisecond)
	case models.FieldTsCode, models.FieldTradeDate:
		return parquet.String()
	default:
		return parquet.Leaf(parquet.DoubleType)
	}
}

// BarSchema builds the parquet schema of a projected table. Parquet groups
// order their columns by name, so the returned index maps each table field
// to its column.
func BarSchema(fields []string) (*parquet.Schema, map[string]int) {
	group := make(parquet.Group, len(fields))
	for _, f := range fields {
		group[f] = parquetNode(f)
	}
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	index := make(map[string]int, len(sorted))
	for i, f := range sorted {
		index[f] = i
	}
	return parquet.NewSchema("minute_bar", group), index
}

func writeParquet(w io.Writer, t models.BarTable) error {
	schema, index := BarSchema(t.Fields)
	pw := parquet.NewWriter(w, schema)

	rows := make([]parquet.Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		pr := make(parquet.Row, len(row))
		for i, v := range row {
			col := index[t.Fields[i]]
			if tv, ok := v.(time.Time); ok {
				v = tv.UnixMilli()
			}
			pr[col] = parquet.ValueOf(v).Level(0, 0, col)
		}
		rows = append(rows, pr)
	}
	if _, err := pw.WriteRows(rows); err != nil {
		return err
	}
	return pw.Close()
}
