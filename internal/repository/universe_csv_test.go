package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGz(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func writeDaily(t *testing.T, root, day, contracts, md string) {
	t.Helper()
	dir := filepath.Join(root, day[:4], day)
	writeGz(t, filepath.Join(dir, fmt.Sprintf(ContractsFileFormat, day)), contracts)
	writeGz(t, filepath.Join(dir, fmt.Sprintf(MarketDataFileFormat, day)), md)
}

func TestCSVContractUniverse(t *testing.T) {
	root := t.TempDir()
	writeDaily(t, root, "20240105",
		"contract,name\nCU2402.SHF,a\nCU2403.SHF,b\nCU2404.SHF,c\nCU2405.SHF,d\nAL2402.SHF,e\nIF2401.CFX,f\nCU2402.SHF,dup\n",
		"ts_code,vol\nCU2402.SHF,100\nCU2403.SHF,300\nCU2404.SHF,100\nAL2402.SHF,\nIF2401.CFX,50\nZN2402.SHF,999\n",
	)

	u := NewCSVContractUniverse(root, 2)
	got, err := u.Contracts(context.Background(), date("20240105"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"AL2402.SHF",
		"CU2403.SHF", "CU2402.SHF",
		"IF2401.CFX",
	}, got)
}

func TestCSVContractUniverseMissingVolumeSortsLast(t *testing.T) {
	root := t.TempDir()
	writeDaily(t, root, "20240105",
		"contract\nRB2405.SHF\nRB2401.SHF\nRB2410.SHF\n",
		"ts_code,vol\nRB2410.SHF,0\n",
	)
	got, err := NewCSVContractUniverse(root, 3).Contracts(context.Background(), date("20240105"))
	require.NoError(t, err)
	assert.Equal(t, []string{"RB2410.SHF", "RB2401.SHF", "RB2405.SHF"}, got)
}

func TestCSVContractUniverseDerivesContractsFromMarketData(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "2024", "20240105")
	writeGz(t, filepath.Join(dir, fmt.Sprintf(MarketDataFileFormat, "20240105")),
		"ts_code,vol\nCU2402.SHF,100\nCU2403.SHF,300\nCU.SHF,400\nCUL.SHF,400\nAL2402.SHF,10\nCF409.ZCE,5\n",
	)

	got, err := NewCSVContractUniverse(root, 1).Contracts(context.Background(), date("20240105"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AL2402.SHF", "CU2403.SHF"}, got)
}

func TestListedContracts(t *testing.T) {
	got := ListedContracts(map[string]float64{"RB2410.SHF": 1, "RB.SHF": 2, "IF2401.CFX": 3, "rb2410.SHF": 4})
	assert.Equal(t, []string{"IF2401.CFX", "RB2410.SHF"}, got)
}

func TestCSVContractUniverseErrors(t *testing.T) {
	root := t.TempDir()
	_, err := NewCSVContractUniverse(root, 1).Contracts(context.Background(), date("20240105"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	writeDaily(t, root, "20240108", "code\nCU2402.SHF\n", "ts_code,vol\n")
	_, err = NewCSVContractUniverse(root, 1).Contracts(context.Background(), date("20240108"))
	assert.ErrorContains(t, err, "missing column")

	writeDaily(t, root, "20240109", "contract\nCU2402.SHF\n", "ts_code,vol\nCU2402.SHF,lots\n")
	_, err = NewCSVContractUniverse(root, 1).Contracts(context.Background(), date("20240109"))
	assert.ErrorContains(t, err, "line 2")
}

func TestInstrumentOf(t *testing.T) {
	assert.Equal(t, "CU.SHF", instrumentOf("CU2409.SHF"))
	assert.Equal(t, "CF.ZCE", instrumentOf("CF409.ZCE"))
	assert.Equal(t, "IF.CFX", instrumentOf("IF2401.CFX"))
}
