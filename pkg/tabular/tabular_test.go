package tabular

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderColumns(t *testing.T) {
	r, err := NewReader(strings.NewReader("\ufeffa,b, c\n1,2,3\n4,5\n"))
	require.NoError(t, err)

	idx, err := r.Columns("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, idx)

	_, err = r.Column("d")
	assert.True(t, errors.Is(err, ErrMissingColumn))

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "3", Cell(rec, 2))

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "", Cell(rec, 2))

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpenGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("trade_date\n20240105\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	i, err := r.Column("trade_date")
	require.NoError(t, err)
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "20240105", rec[i])
}
