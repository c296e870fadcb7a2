package instrument

import (
	"fmt"
	"regexp"
	"strings"

	"FutPull/internal/domain/models"
)

var contractPattern = regexp.MustCompile(`^([A-Za-z]{1,2})(\d{3,4})\.([A-Z]{3})$`)

// Classifier splits contract ids such as "CU2409.SHF" into instrument and exchange.
type Classifier struct{}

func NewClassifier() *Classifier { return &Classifier{} }

func (c *Classifier) Classify(contract string) (models.Instrument, error) {
	m := contractPattern.FindStringSubmatch(strings.TrimSpace(contract))
	if m == nil {
		return models.Instrument{}, fmt.Errorf("%q: %w", contract, models.ErrInvalidContract)
	}
	return models.Instrument{Code: strings.ToUpper(m[1]), Exchange: m[3]}, nil
}

// CTPCode returns the symbol a contract is filed under in the tick archives.
// ZCE drops the decade digit of the delivery year, the other commodity
// exchanges use lower case and CFX keeps the symbol as is.
func CTPCode(contract string) (string, error) {
	m := contractPattern.FindStringSubmatch(strings.TrimSpace(contract))
	if m == nil {
		return "", fmt.Errorf("%q: %w", contract, models.ErrInvalidContract)
	}
	symbol, month, exchange := m[1], m[2], m[3]
	switch exchange {
	case models.ExchangeZCE:
		if len(month) == 4 {
			month = month[1:]
		}
		return strings.ToUpper(symbol) + month, nil
	case models.ExchangeDCE, models.ExchangeSHF, models.ExchangeINE, models.ExchangeGFE:
		return strings.ToLower(symbol + month), nil
	default:
		return symbol + month, nil
	}
}

// ParseInstrument reads the dotted instrument form, e.g. "IF.CFX".
func ParseInstrument(id string) (models.Instrument, error) {
	code, exchange, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(id)), ".")
	if !ok || code == "" || len(exchange) != 3 {
		return models.Instrument{}, fmt.Errorf("instrument %q: %w", id, models.ErrInvalidContract)
	}
	return models.Instrument{Code: code, Exchange: exchange}, nil
}
