package vision

import (
	"context"

	"github.com/septivank/utility-metering-api/internal/db"
	"github.com/shopspring/decimal"
)

// Extraction is the result of reading a meter photograph
type Extraction struct {
	// Value is the numeric reading on the meter display
	Value decimal.Decimal
	// ID is an optional identifier assigned by the provider. May be empty.
	ID string
}

// Extractor derives a numeric meter value from an image. Implementations
// are not retried; any failure is surfaced to the caller as-is.
type Extractor interface {
	Extract(ctx context.Context, image []byte, measureType db.MeasureType) (Extraction, error)
}
