package httpapi

import (
	"fmt"
	"net/http"

	playground "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// EchoValidator adapts go-playground struct validation to echo
type EchoValidator struct {
	validate *playground.Validate
}

// NewEchoValidator creates a new request struct validator
func NewEchoValidator() *EchoValidator {
	return &EchoValidator{validate: playground.New()}
}

// Validate implements echo.Validator
func (v *EchoValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body: %v", err))
	}
	return nil
}
