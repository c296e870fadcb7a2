// Package tabular reads header-addressed CSV files, gzip-compressed or not.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var ErrMissingColumn = errors.New("missing column")

// Reader walks CSV records and resolves columns by header name.
type Reader struct {
	r      *csv.Reader
	header map[string]int
	closer io.Closer
}

// NewReader consumes the header line of r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := header[h]; !dup {
			header[h] = i
		}
	}
	return &Reader{r: cr, header: header}, nil
}

// Open reads path, transparently decompressing files ending in ".gz".
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var src io.Reader = f
	closer := io.Closer(f)
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		src = zr
		closer = multiCloser{zr, f}
	}
	r, err := NewReader(src)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = closer
	return r, nil
}

// Column returns the index of a header name.
func (r *Reader) Column(name string) (int, error) {
	i, ok := r.header[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return i, nil
}

// Columns resolves several names at once.
func (r *Reader) Columns(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		c, err := r.Column(n)
		if err != nil {
			return nil, err
		}
		idx[i] = c
	}
	return idx, nil
}

// Next returns the following record, or io.EOF. The slice is reused between calls.
func (r *Reader) Next() ([]string, error) {
	return r.r.Read()
}

// Line is the input line of the last record read.
func (r *Reader) Line() int {
	line, _ := r.r.FieldPos(0)
	return line
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Cell returns record[i] trimmed, or "" when the record is short.
func Cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
