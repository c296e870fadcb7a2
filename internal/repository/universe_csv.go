package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"FutPull/internal/domain/repository"
	"FutPull/pkg/tabular"
)

// Daily file names under {daily_root}/{yyyy}/{yyyymmdd}/.
const (
	ContractsFileFormat  = "tushare_futures_contracts_%s.csv.gz"
	MarketDataFileFormat = "tushare_futures_md_%s.csv.gz"
)

// CSVContractUniverse picks the most traded contracts of every instrument
// from the daily contracts and market data files.
type CSVContractUniverse struct {
	dailyRoot string
	topN      int
}

func NewCSVContractUniverse(dailyRoot string, topN int) repository.ContractUniverse {
	return &CSVContractUniverse{dailyRoot: dailyRoot, topN: topN}
}

type rankedContract struct {
	contract   string
	instrument string
	vol        float64
	hasVol     bool
}

// Contracts returns up to topN contracts per instrument, instruments in
// ascending order and, within one, by volume descending then contract.
func (u *CSVContractUniverse) Contracts(ctx context.Context, tradeDate time.Time) ([]string, error) {
	date := tradeDate.Format("20060102")
	dir := filepath.Join(u.dailyRoot, date[:4], date)

	contracts, err := readColumn(filepath.Join(dir, fmt.Sprintf(ContractsFileFormat, date)), "contract")
	derive := errors.Is(err, os.ErrNotExist)
	if err != nil && !derive {
		return nil, fmt.Errorf("load contracts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vols, err := readVolumes(filepath.Join(dir, fmt.Sprintf(MarketDataFileFormat, date)))
	if err != nil {
		return nil, fmt.Errorf("load market data: %w", err)
	}
	if derive {
		contracts = ListedContracts(vols)
	}

	ranked := make([]rankedContract, 0, len(contracts))
	for _, c := range contracts {
		v, ok := vols[c]
		ranked = append(ranked, rankedContract{contract: c, instrument: instrumentOf(c), vol: v, hasVol: ok})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.instrument != b.instrument {
			return a.instrument < b.instrument
		}
		if a.hasVol != b.hasVol {
			return a.hasVol
		}
		if a.vol != b.vol {
			return a.vol > b.vol
		}
		return a.contract < b.contract
	})

	out := make([]string, 0, len(ranked))
	taken := 0
	for i, r := range ranked {
		if i > 0 && r.instrument != ranked[i-1].instrument {
			taken = 0
		}
		if taken < u.topN {
			out = append(out, r.contract)
			taken++
		}
	}
	return out, nil
}

var listedContract = regexp.MustCompile(`^[A-Z]{1,2}\d{4}\.[A-Z]{3}$`)

// ListedContracts keeps the market data codes that name a single listed
// contract, dropping continuous and index series such as "CU.SHF" or
// "CUL.SHF". It stands in for the contracts file when that is absent.
func ListedContracts(vols map[string]float64) []string {
	out := make([]string, 0, len(vols))
	for code := range vols {
		if listedContract.MatchString(code) {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// instrumentOf strips digits, "CU2409.SHF" becomes "CU.SHF".
func instrumentOf(contract string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, contract)
}

func readColumn(path, name string) ([]string, error) {
	r, err := tabular.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	col, err := r.Column(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var out []string
	seen := make(map[string]bool)
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if v := tabular.Cell(rec, col); v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
}

func readVolumes(path string) (map[string]float64, error) {
	r, err := tabular.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	cols, err := r.Columns("ts_code", "vol")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make(map[string]float64)
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		code := tabular.Cell(rec, cols[0])
		if code == "" {
			continue
		}
		var vol float64
		if cell := tabular.Cell(rec, cols[1]); cell != "" {
			if vol, err = strconv.ParseFloat(cell, 64); err != nil {
				return nil, fmt.Errorf("%s line %d: vol %q: %w", path, r.Line(), cell, err)
			}
		}
		out[code] = vol
	}
}
