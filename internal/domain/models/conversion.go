package models

import (
	"iter"
	"slices"
	"time"
)

// Conversion is the outcome of turning one unit's raw ticks into bars.
type Conversion struct {
	Contract  string
	TradeDate time.Time
	Bars      []MinuteBar // every non-empty minute bucket
	Records   []BarRecord // complete bars stamped with contract and date
	Stats     ConversionStats
}

type ConversionStats struct {
	TicksIn    int
	Snapped    int
	Dropped    int
	Incomplete int
}

// All yields the complete records in timestamp order. The sequence can be
// ranged over any number of times.
func (c Conversion) All() iter.Seq[BarRecord] {
	return slices.Values(c.Records)
}
