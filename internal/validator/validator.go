package validator

import (
	"fmt"
	"regexp"
	"time"

	"github.com/septivank/utility-metering-api/internal/db"
	"github.com/septivank/utility-metering-api/tools/dataimage"
	"github.com/septivank/utility-metering-api/tools/timeparser"
	"github.com/shopspring/decimal"
)

// decimalPattern accepts an unsigned decimal with an optional fractional
// part. No sign, no exponent.
var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Field   string
	Reason  string
}

// UploadRequest is the raw upload input before validation
type UploadRequest struct {
	CustomerCode    string
	Image           string
	MeasureDatetime string
	MeasureType     string
}

// UploadInput is a validated upload request
type UploadInput struct {
	CustomerCode    string
	ImageData       []byte
	MeasureDatetime time.Time
	MeasureType     db.MeasureType
}

// ConfirmRequest is the raw confirmation input before validation
type ConfirmRequest struct {
	MeasureUUID    string
	ConfirmedValue string
}

// ConfirmInput is a validated confirmation request
type ConfirmInput struct {
	MeasureUUID    string
	ConfirmedValue decimal.Decimal
}

// Validator validates measure requests. All rules live here so handlers
// and workflows never duplicate them.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

func invalid(field, reason string) ValidationResult {
	return ValidationResult{IsValid: false, Field: field, Reason: reason}
}

// ValidateUpload validates an upload request and returns the decoded,
// normalized input. Validation happens before any side effect.
func (v *Validator) ValidateUpload(req UploadRequest) (UploadInput, ValidationResult) {
	if req.CustomerCode == "" {
		return UploadInput{}, invalid("customer_code", "customer_code is required and must be a non-empty string")
	}

	imageData, err := dataimage.Decode(req.Image)
	if err != nil {
		return UploadInput{}, invalid("image", fmt.Sprintf("image must be a valid base64 string: %v", err))
	}

	if req.MeasureDatetime == "" {
		return UploadInput{}, invalid("measure_datetime", "measure_datetime is required")
	}
	measureDatetime, err := timeparser.ParseMeasureDatetime(req.MeasureDatetime)
	if err != nil {
		return UploadInput{}, invalid("measure_datetime", "measure_datetime must be a valid date")
	}

	measureType, err := db.ParseMeasureType(req.MeasureType)
	if err != nil {
		return UploadInput{}, invalid("measure_type", "measure_type must be either WATER or GAS")
	}

	return UploadInput{
		CustomerCode:    req.CustomerCode,
		ImageData:       imageData,
		MeasureDatetime: measureDatetime,
		MeasureType:     measureType,
	}, ValidationResult{IsValid: true}
}

// ValidateConfirm validates a confirmation request
func (v *Validator) ValidateConfirm(req ConfirmRequest) (ConfirmInput, ValidationResult) {
	if req.MeasureUUID == "" {
		return ConfirmInput{}, invalid("measure_uuid", "measure_uuid is required and must be a non-empty string")
	}

	if !decimalPattern.MatchString(req.ConfirmedValue) {
		return ConfirmInput{}, invalid("confirmed_value", "confirmed_value must be an unsigned decimal number")
	}

	value, err := decimal.NewFromString(req.ConfirmedValue)
	if err != nil {
		return ConfirmInput{}, invalid("confirmed_value", "confirmed_value must be a valid number")
	}

	return ConfirmInput{
		MeasureUUID:    req.MeasureUUID,
		ConfirmedValue: value,
	}, ValidationResult{IsValid: true}
}

// ValidateMeasureTypeFilter validates the optional list filter. The
// second return value reports whether a filter was supplied at all.
func (v *Validator) ValidateMeasureTypeFilter(raw string) (db.MeasureType, bool, ValidationResult) {
	if raw == "" {
		return "", false, ValidationResult{IsValid: true}
	}

	measureType, err := db.ParseMeasureType(raw)
	if err != nil {
		return "", true, invalid("measure_type", "measurement type not allowed")
	}

	return measureType, true, ValidationResult{IsValid: true}
}
