package service

import "FutPull/internal/domain/models"

// BarConverter converts the raw ticks of one unit into minute bars.
type BarConverter interface {
	Convert(unit models.Unit, raw []models.RawTick) (models.Conversion, error)
}
