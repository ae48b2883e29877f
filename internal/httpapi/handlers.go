package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/septivank/utility-metering-api/internal/service"
	"github.com/septivank/utility-metering-api/internal/validator"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func init() {
	// measure_value is numeric on the wire, not a quoted string
	decimal.MarshalJSONWithoutQuotes = true
}

type uploadRequest struct {
	CustomerCode    string `json:"customer_code" validate:"required"`
	Image           string `json:"image" validate:"required"`
	MeasureDatetime string `json:"measure_datetime" validate:"required"`
	MeasureType     string `json:"measure_type" validate:"required"`
}

type uploadResponse struct {
	ImageURL     string          `json:"image_url"`
	MeasureValue decimal.Decimal `json:"measure_value"`
	MeasureUUID  string          `json:"measure_uuid"`
}

type confirmRequest struct {
	MeasureUUID string `json:"measure_uuid" validate:"required"`
	// Accepts both a JSON number and a numeric string
	ConfirmedValue json.Number `json:"confirmed_value" validate:"required"`
}

type confirmResponse struct {
	Success bool `json:"success"`
}

type measureSummary struct {
	MeasureUUID     string `json:"measure_uuid"`
	MeasureDatetime string `json:"measure_datetime"`
	MeasureType     string `json:"measure_type"`
	HasConfirmed    bool   `json:"has_confirmed"`
	ImageURL        string `json:"image_url"`
}

type listResponse struct {
	CustomerCode string           `json:"customer_code"`
	Measures     []measureSummary `json:"measures"`
}

type errorResponse struct {
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

func (s *Server) uploadMeasure(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			ErrorCode:        service.CodeInvalidData,
			ErrorDescription: fmt.Sprintf("malformed request body: %v", err),
		})
	}
	if err := c.Validate(&req); err != nil {
		return s.respondError(c, err)
	}

	result, err := s.svc.Upload(c.Request().Context(), requestContext(c), validator.UploadRequest{
		CustomerCode:    req.CustomerCode,
		Image:           req.Image,
		MeasureDatetime: req.MeasureDatetime,
		MeasureType:     req.MeasureType,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, uploadResponse{
		ImageURL:     result.ImageURL,
		MeasureValue: result.MeasureValue,
		MeasureUUID:  result.MeasureUUID,
	})
}

func (s *Server) confirmMeasure(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			ErrorCode:        service.CodeInvalidData,
			ErrorDescription: fmt.Sprintf("malformed request body: %v", err),
		})
	}
	if err := c.Validate(&req); err != nil {
		return s.respondError(c, err)
	}

	err := s.svc.Confirm(c.Request().Context(), requestContext(c), validator.ConfirmRequest{
		MeasureUUID:    req.MeasureUUID,
		ConfirmedValue: req.ConfirmedValue.String(),
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(http.StatusOK, confirmResponse{Success: true})
}

func (s *Server) listMeasures(c echo.Context) error {
	customerCode := c.Param("customer_code")
	measureType := c.QueryParam("measure_type")

	result, err := s.svc.List(c.Request().Context(), customerCode, measureType)
	if err != nil {
		return s.respondError(c, err)
	}

	measures := make([]measureSummary, 0, len(result.Measures))
	for _, m := range result.Measures {
		measures = append(measures, measureSummary{
			MeasureUUID:     m.MeasureUUID,
			MeasureDatetime: m.MeasureDatetime.UTC().Format(time.RFC3339),
			MeasureType:     string(m.MeasureType),
			HasConfirmed:    m.HasConfirmed,
			ImageURL:        m.ImageURL,
		})
	}

	return c.JSON(http.StatusOK, listResponse{
		CustomerCode: result.CustomerCode,
		Measures:     measures,
	})
}

// respondError maps workflow and binding failures to the wire error
// shape. Unrecognized errors become a generic storage failure, never a
// leaked internal message.
func (s *Server) respondError(c echo.Context, err error) error {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return c.JSON(svcErr.Status, errorResponse{
			ErrorCode:        svcErr.Code,
			ErrorDescription: svcErr.Description,
		})
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return c.JSON(httpErr.Code, errorResponse{
			ErrorCode:        service.CodeInvalidData,
			ErrorDescription: fmt.Sprintf("%v", httpErr.Message),
		})
	}

	s.logger.Error("unhandled request error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, errorResponse{
		ErrorCode:        service.CodeStorageError,
		ErrorDescription: "internal server error",
	})
}

func requestContext(c echo.Context) service.RequestContext {
	return service.RequestContext{
		Scheme:    c.Scheme(),
		Host:      c.Request().Host,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	}
}
