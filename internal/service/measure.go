package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/utility-metering-api/internal/anomaly"
	"github.com/septivank/utility-metering-api/internal/config"
	"github.com/septivank/utility-metering-api/internal/db"
	"github.com/septivank/utility-metering-api/internal/logging"
	"github.com/septivank/utility-metering-api/internal/mq"
	"github.com/septivank/utility-metering-api/internal/repository"
	"github.com/septivank/utility-metering-api/internal/validator"
	"github.com/septivank/utility-metering-api/internal/vision"
	"github.com/septivank/utility-metering-api/tools/timeparser"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const imageExtension = ".jpg"

const recentValuesForPlausibility = 10

// MeasureRepository is the persistence surface the workflows need
type MeasureRepository interface {
	InsertMeasure(ctx context.Context, measure *db.Measure) error
	HasMeasureInWindow(ctx context.Context, customerCode string, measureType db.MeasureType, start, end time.Time) (bool, error)
	GetMeasureByUUID(ctx context.Context, measureUUID string) (*db.Measure, error)
	ConfirmMeasure(ctx context.Context, measureUUID string, confirmedValue decimal.Decimal) error
	ListMeasuresByCustomer(ctx context.Context, customerCode string, measureType *db.MeasureType) ([]db.Measure, error)
	RecentConfirmedValues(ctx context.Context, customerCode string, measureType db.MeasureType, limit int) ([]float64, error)
}

// ImageStore persists meter images and builds their serving URLs
type ImageStore interface {
	Save(fileName string, data []byte) error
	URLFor(scheme, host, fileName string) string
}

// RequestContext carries the inbound request details the workflows need
// to build absolute image URLs and correlate logs
type RequestContext struct {
	Scheme    string
	Host      string
	RequestID string
}

// UploadResult is the outcome of a successful upload
type UploadResult struct {
	ImageURL     string
	MeasureValue decimal.Decimal
	MeasureUUID  string
}

// MeasureSummary is the listing projection of a measure. Internal
// storage fields are excluded.
type MeasureSummary struct {
	MeasureUUID     string
	MeasureDatetime time.Time
	MeasureType     db.MeasureType
	HasConfirmed    bool
	ImageURL        string
}

// CustomerMeasures is the result of a listing request
type CustomerMeasures struct {
	CustomerCode string
	Measures     []MeasureSummary
}

// MeasureService orchestrates the upload, confirmation and listing
// workflows
type MeasureService struct {
	repo      MeasureRepository
	store     ImageStore
	extractor vision.Extractor
	publisher mq.EventPublisher
	detector  *anomaly.Detector
	validator *validator.Validator
	cfg       *config.Config
	logger    *zap.Logger
}

// NewMeasureService creates a new measure service
func NewMeasureService(
	repo MeasureRepository,
	store ImageStore,
	extractor vision.Extractor,
	publisher mq.EventPublisher,
	detector *anomaly.Detector,
	validator *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *MeasureService {
	return &MeasureService{
		repo:      repo,
		store:     store,
		extractor: extractor,
		publisher: publisher,
		detector:  detector,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Upload validates a reading submission, extracts the value from the
// image, persists image and record, and returns the stored identifiers.
// The duplicate check short-circuits before the vision call and the
// file write, so a rejected month costs no external call and leaves no
// orphan file.
func (s *MeasureService) Upload(ctx context.Context, rc RequestContext, req validator.UploadRequest) (UploadResult, error) {
	reqLogger := logging.WithRequestID(s.logger, rc.RequestID)

	input, result := s.validator.ValidateUpload(req)
	if !result.IsValid {
		return UploadResult{}, ErrInvalidData(result.Reason)
	}

	start, end := timeparser.MonthWindow(input.MeasureDatetime)
	exists, err := s.repo.HasMeasureInWindow(ctx, input.CustomerCode, input.MeasureType, start, end)
	if err != nil {
		reqLogger.Error("failed to check month window", zap.Error(err))
		return UploadResult{}, ErrStorageError(err)
	}
	if exists {
		return UploadResult{}, ErrDoubleReport()
	}

	extraction, err := s.extract(ctx, input.ImageData, input.MeasureType)
	if err != nil {
		reqLogger.Error("vision extraction failed",
			zap.Error(err),
			zap.String("customer_code", input.CustomerCode),
			zap.String("measure_type", string(input.MeasureType)),
		)
		return UploadResult{}, ErrExtractionFailed(err)
	}

	// One identifier names both the image file and the record. Generated
	// locally, overridden when the extraction provider supplies its own.
	measureUUID := uuid.New().String()
	if extraction.ID != "" {
		measureUUID = extraction.ID
	}
	fileName := measureUUID + imageExtension

	if err := s.store.Save(fileName, input.ImageData); err != nil {
		reqLogger.Error("failed to persist image", zap.Error(err), zap.String("file_name", fileName))
		return UploadResult{}, ErrStorageError(err)
	}
	imageURL := s.store.URLFor(rc.Scheme, rc.Host, fileName)

	s.checkPlausibility(ctx, reqLogger, input.CustomerCode, input.MeasureType, extraction.Value)

	measure := &db.Measure{
		MeasureUUID:     measureUUID,
		CustomerCode:    input.CustomerCode,
		MeasureDatetime: input.MeasureDatetime,
		MeasureType:     input.MeasureType,
		MeasureValue:    extraction.Value,
		HasConfirmed:    false,
		ImageURL:        imageURL,
	}

	if err := s.repo.InsertMeasure(ctx, measure); err != nil {
		if errors.Is(err, repository.ErrMonthAlreadyReported) {
			// The unique index caught a concurrent upload that slipped
			// past the window check. The image file is an accepted orphan.
			return UploadResult{}, ErrDoubleReport()
		}
		reqLogger.Error("failed to insert measure", zap.Error(err))
		return UploadResult{}, ErrStorageError(err)
	}

	s.publishEvent(ctx, reqLogger, measure, mq.RoutingKeyMeasureRecorded)

	reqLogger.Info("measure uploaded",
		zap.String("measure_uuid", measureUUID),
		zap.String("customer_code", input.CustomerCode),
		zap.String("measure_type", string(input.MeasureType)),
		zap.String("measure_value", extraction.Value.String()),
	)

	return UploadResult{
		ImageURL:     imageURL,
		MeasureValue: extraction.Value,
		MeasureUUID:  measureUUID,
	}, nil
}

// Confirm applies a user-supplied correction to an unconfirmed measure
// exactly once
func (s *MeasureService) Confirm(ctx context.Context, rc RequestContext, req validator.ConfirmRequest) error {
	reqLogger := logging.WithRequestID(s.logger, rc.RequestID)

	input, result := s.validator.ValidateConfirm(req)
	if !result.IsValid {
		return ErrInvalidData(result.Reason)
	}

	measure, err := s.repo.GetMeasureByUUID(ctx, input.MeasureUUID)
	if err != nil {
		if errors.Is(err, repository.ErrMeasureNotFound) {
			return ErrMeasureNotFound()
		}
		reqLogger.Error("failed to load measure", zap.Error(err))
		return ErrStorageError(err)
	}
	if measure.HasConfirmed {
		return ErrConfirmationDuplicate()
	}

	if err := s.repo.ConfirmMeasure(ctx, input.MeasureUUID, input.ConfirmedValue); err != nil {
		switch {
		case errors.Is(err, repository.ErrMeasureNotFound):
			return ErrMeasureNotFound()
		case errors.Is(err, repository.ErrAlreadyConfirmed):
			return ErrConfirmationDuplicate()
		default:
			reqLogger.Error("failed to confirm measure", zap.Error(err))
			return ErrStorageError(err)
		}
	}

	measure.MeasureValue = input.ConfirmedValue
	s.publishEvent(ctx, reqLogger, measure, mq.RoutingKeyMeasureConfirmed)

	reqLogger.Info("measure confirmed",
		zap.String("measure_uuid", input.MeasureUUID),
		zap.String("confirmed_value", input.ConfirmedValue.String()),
	)

	return nil
}

// List returns the measure summaries for a customer, optionally
// filtered by measure type
func (s *MeasureService) List(ctx context.Context, customerCode, measureTypeFilter string) (CustomerMeasures, error) {
	if customerCode == "" {
		return CustomerMeasures{}, ErrInvalidData("customer_code is required and must be a non-empty string")
	}

	var filter *db.MeasureType
	measureType, supplied, result := s.validator.ValidateMeasureTypeFilter(measureTypeFilter)
	if !result.IsValid {
		return CustomerMeasures{}, ErrInvalidType(result.Reason)
	}
	if supplied {
		filter = &measureType
	}

	measures, err := s.repo.ListMeasuresByCustomer(ctx, customerCode, filter)
	if err != nil {
		s.logger.Error("failed to list measures", zap.Error(err), zap.String("customer_code", customerCode))
		return CustomerMeasures{}, ErrStorageError(err)
	}
	if len(measures) == 0 {
		return CustomerMeasures{}, ErrMeasuresNotFound()
	}

	summaries := make([]MeasureSummary, 0, len(measures))
	for _, m := range measures {
		summaries = append(summaries, MeasureSummary{
			MeasureUUID:     m.MeasureUUID,
			MeasureDatetime: m.MeasureDatetime,
			MeasureType:     m.MeasureType,
			HasConfirmed:    m.HasConfirmed,
			ImageURL:        m.ImageURL,
		})
	}

	return CustomerMeasures{CustomerCode: customerCode, Measures: summaries}, nil
}

func (s *MeasureService) extract(ctx context.Context, image []byte, measureType db.MeasureType) (vision.Extraction, error) {
	timeout := time.Duration(s.cfg.Vision.TimeoutSeconds) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.extractor.Extract(ctx, image, measureType)
}

func (s *MeasureService) checkPlausibility(ctx context.Context, logger *zap.Logger, customerCode string, measureType db.MeasureType, value decimal.Decimal) {
	recent, err := s.repo.RecentConfirmedValues(ctx, customerCode, measureType, recentValuesForPlausibility)
	if err != nil {
		logger.Warn("failed to load recent values for plausibility check",
			zap.Error(err),
			zap.String("customer_code", customerCode),
		)
		return
	}

	floatValue, _ := value.Float64()
	if flagged, reason := s.detector.CheckReading(floatValue, recent); flagged {
		logger.Warn("extracted value looks implausible",
			zap.String("customer_code", customerCode),
			zap.String("measure_type", string(measureType)),
			zap.Float64("value", floatValue),
			zap.String("reason", reason),
		)
	}
}

func (s *MeasureService) publishEvent(ctx context.Context, logger *zap.Logger, measure *db.Measure, routingKey string) {
	event := mq.MeasureEvent{
		Event:           routingKey,
		MeasureUUID:     measure.MeasureUUID,
		CustomerCode:    measure.CustomerCode,
		MeasureType:     string(measure.MeasureType),
		MeasureValue:    measure.MeasureValue.String(),
		MeasureDatetime: measure.MeasureDatetime.UTC().Format(time.RFC3339),
	}

	if err := s.publisher.PublishMeasureEvent(ctx, event, routingKey); err != nil {
		// Events are best effort; the measure is already committed
		logger.Error("failed to publish measure event",
			zap.Error(err),
			zap.String("routing_key", routingKey),
			zap.String("measure_uuid", measure.MeasureUUID),
		)
	}
}
