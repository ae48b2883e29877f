package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MeasureType is the kind of utility meter a reading belongs to
type MeasureType string

const (
	MeasureTypeWater MeasureType = "WATER"
	MeasureTypeGas   MeasureType = "GAS"
)

// ParseMeasureType normalizes and validates a meter kind string
func ParseMeasureType(s string) (MeasureType, error) {
	switch MeasureType(strings.ToUpper(s)) {
	case MeasureTypeWater:
		return MeasureTypeWater, nil
	case MeasureTypeGas:
		return MeasureTypeGas, nil
	default:
		return "", fmt.Errorf("unsupported measure type '%s'", s)
	}
}

// Measure represents a persisted meter reading
type Measure struct {
	MeasureUUID     string
	CustomerCode    string
	MeasureDatetime time.Time
	MeasureType     MeasureType
	MeasureValue    decimal.Decimal
	HasConfirmed    bool
	ImageURL        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
