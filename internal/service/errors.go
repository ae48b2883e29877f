package service

import (
	"fmt"
	"net/http"
)

// Error codes returned in the error_code field of error responses
const (
	CodeInvalidData           = "INVALID_DATA"
	CodeInvalidType           = "INVALID_TYPE"
	CodeDoubleReport          = "DOUBLE_REPORT"
	CodeMeasureNotFound       = "MEASURE_NOT_FOUND"
	CodeMeasuresNotFound      = "MEASURES_NOT_FOUND"
	CodeConfirmationDuplicate = "CONFIRMATION_DUPLICATE"
	CodeExtractionFailed      = "EXTRACTION_FAILED"
	CodeStorageError          = "STORAGE_ERROR"
)

// Error is a workflow failure with a stable code and HTTP status
type Error struct {
	Code        string
	Status      int
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// ErrInvalidData reports a malformed or missing input field
func ErrInvalidData(description string) *Error {
	return &Error{Code: CodeInvalidData, Status: http.StatusBadRequest, Description: description}
}

// ErrInvalidType reports an unsupported measure type filter
func ErrInvalidType(description string) *Error {
	return &Error{Code: CodeInvalidType, Status: http.StatusBadRequest, Description: description}
}

// ErrDoubleReport reports a second upload inside the same month window
func ErrDoubleReport() *Error {
	return &Error{Code: CodeDoubleReport, Status: http.StatusConflict, Description: "measure already reported for this customer, type and month"}
}

// ErrMeasureNotFound reports a missing measure UUID
func ErrMeasureNotFound() *Error {
	return &Error{Code: CodeMeasureNotFound, Status: http.StatusNotFound, Description: "measure not found"}
}

// ErrMeasuresNotFound reports an empty listing result
func ErrMeasuresNotFound() *Error {
	return &Error{Code: CodeMeasuresNotFound, Status: http.StatusNotFound, Description: "no measures found"}
}

// ErrConfirmationDuplicate reports a confirmation attempt on an already
// confirmed measure
func ErrConfirmationDuplicate() *Error {
	return &Error{Code: CodeConfirmationDuplicate, Status: http.StatusConflict, Description: "measure already confirmed"}
}

// ErrExtractionFailed reports a vision extraction failure
func ErrExtractionFailed(err error) *Error {
	return &Error{Code: CodeExtractionFailed, Status: http.StatusInternalServerError, Description: fmt.Sprintf("failed to extract measure from image: %v", err)}
}

// ErrStorageError reports an image persistence or database failure
func ErrStorageError(err error) *Error {
	return &Error{Code: CodeStorageError, Status: http.StatusInternalServerError, Description: fmt.Sprintf("storage failure: %v", err)}
}
