package models

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedInstrument = errors.New("unsupported instrument")
	ErrEmptyArchive          = errors.New("empty tick archive")
	ErrMalformedTick         = errors.New("malformed tick")
	ErrUnknownField          = errors.New("unknown bar field")
	ErrDateNotInCalendar     = errors.New("date not in trading calendar")
	ErrUnsupportedFormat     = errors.New("unsupported save format")
	ErrInvalidContract       = errors.New("invalid contract id")
)

// UnsupportedInstrumentError names the pair no session policy covers.
type UnsupportedInstrumentError struct {
	Exchange   string
	Instrument string
}

func (e *UnsupportedInstrumentError) Error() string {
	return fmt.Sprintf("%s: instrument=%q exchange=%q", ErrUnsupportedInstrument, e.Instrument, e.Exchange)
}

// Is lets errors.Is match the sentinel.
func (e *UnsupportedInstrumentError) Is(target error) bool {
	return target == ErrUnsupportedInstrument
}
