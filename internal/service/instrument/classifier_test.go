package instrument

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FutPull/internal/domain/models"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	got, err := c.Classify("CU2409.SHF")
	require.NoError(t, err)
	assert.Equal(t, models.Instrument{Code: "CU", Exchange: "SHF"}, got)
	assert.Equal(t, "CU.SHF", got.ID())

	got, err = c.Classify("T2412.CFX")
	require.NoError(t, err)
	assert.Equal(t, "T.CFX", got.ID())

	got, err = c.Classify("cf409.ZCE")
	require.NoError(t, err)
	assert.Equal(t, "CF", got.Code)

	for _, bad := range []string{"", "CU2409", "CU24.SHF", "ABC2409.SHF", "CU2409.shf"} {
		_, err := c.Classify(bad)
		assert.True(t, errors.Is(err, models.ErrInvalidContract), bad)
	}
}

func TestCTPCode(t *testing.T) {
	tests := map[string]string{
		"CF2409.ZCE": "CF409",
		"CF409.ZCE":  "CF409",
		"CU2409.SHF": "cu2409",
		"M2409.DCE":  "m2409",
		"SC2409.INE": "sc2409",
		"SI2409.GFE": "si2409",
		"IF2409.CFX": "IF2409",
	}
	for in, want := range tests {
		got, err := CTPCode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := CTPCode("bogus")
	assert.Error(t, err)
}

func TestParseInstrument(t *testing.T) {
	inst, err := ParseInstrument(" if.cfx ")
	require.NoError(t, err)
	assert.Equal(t, models.Instrument{Code: "IF", Exchange: "CFX"}, inst)

	for _, bad := range []string{"", "IF", ".CFX", "IF.CF"} {
		_, err := ParseInstrument(bad)
		assert.ErrorIs(t, err, models.ErrInvalidContract, bad)
	}
}
