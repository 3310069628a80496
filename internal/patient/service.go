package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/medilabo/patient-service/internal/messaging"
	"github.com/medilabo/patient-service/internal/pagination"
)

var tracer = otel.Tracer("github.com/medilabo/patient-service/patient")

type noopMetrics struct{}

func (noopMetrics) RecordPatientOperation(context.Context, string, string) {}

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	validator *Validator
	logger    zerolog.Logger
}

// NewService wires the patient service. publisher and metrics may be nil.
func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, metrics MetricsRecorder, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		validator: NewValidator(),
		logger:    logger.With().Str("component", "patient_service").Logger(),
	}
}

func (s *Service) GetPatientByLastName(ctx context.Context, lastName string) (*Patient, error) {
	ctx, span := tracer.Start(ctx, "patient.GetByLastName")
	defer span.End()

	p, err := s.repo.FindByLastName(ctx, strings.TrimSpace(lastName))
	s.finish(ctx, span, "get", err)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	ctx, span := tracer.Start(ctx, "patient.List")
	defer span.End()

	patients, err := s.repo.FindAll(ctx)
	s.finish(ctx, span, "list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	span.SetAttributes(attribute.Int("patient.count", len(patients)))
	return patients, nil
}

func (s *Service) ListPatientsWithPagination(ctx context.Context, params pagination.Params) (*PatientPage, error) {
	ctx, span := tracer.Start(ctx, "patient.ListPage", trace.WithAttributes(
		attribute.Int("page", params.Page),
		attribute.Int("limit", params.Limit),
	))
	defer span.End()

	params.Validate()

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.finish(ctx, span, "list", err)
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}

	patients, err := s.repo.FindPage(ctx, params.Limit, params.Offset())
	s.finish(ctx, span, "list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	return &PatientPage{
		Patients:   patients,
		Pagination: params.Meta(total),
	}, nil
}

func (s *Service) CreatePatient(ctx context.Context, req PatientRequest) (*Patient, error) {
	ctx, span := tracer.Start(ctx, "patient.Create")
	defer span.End()

	req = normalize(req)
	if err := s.validator.Validate(req); err != nil {
		s.finish(ctx, span, "create", err)
		return nil, err
	}

	p, err := s.repo.Create(ctx, req)
	s.finish(ctx, span, "create", err)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.publish(ctx, messaging.EventPatientCreated, messaging.PatientCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientCreated),
		Data:      eventData(p),
	})
	return p, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id int64, req PatientRequest) (*Patient, error) {
	ctx, span := tracer.Start(ctx, "patient.Update", trace.WithAttributes(attribute.Int64("patient.id", id)))
	defer span.End()

	req = normalize(req)
	if err := s.validator.Validate(req); err != nil {
		s.finish(ctx, span, "update", err)
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, req)
	s.finish(ctx, span, "update", err)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.publish(ctx, messaging.EventPatientUpdated, messaging.PatientUpdatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientUpdated),
		Data:      eventData(p),
	})
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id int64) (*Patient, error) {
	ctx, span := tracer.Start(ctx, "patient.Delete", trace.WithAttributes(attribute.Int64("patient.id", id)))
	defer span.End()

	p, err := s.repo.Delete(ctx, id)
	s.finish(ctx, span, "delete", err)
	if err != nil {
		return nil, fmt.Errorf("failed to delete patient: %w", err)
	}

	s.publish(ctx, messaging.EventPatientDeleted, messaging.PatientDeletedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientDeleted),
		Data: messaging.PatientDeletedData{
			PatientID: p.ID,
			LastName:  p.LastName,
			DeletedAt: time.Now().UTC(),
		},
	})
	return p, nil
}

// finish records the operation outcome on the span and in metrics.
func (s *Service) finish(ctx context.Context, span trace.Span, operation string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrValidation):
		outcome = "invalid"
	case errors.Is(err, ErrPatientNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	s.metrics.RecordPatientOperation(ctx, operation, outcome)
}

// publish sends an event; failures are logged and never surface to the caller.
func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
	}
}

func normalize(req PatientRequest) PatientRequest {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.BirthDate = strings.TrimSpace(req.BirthDate)
	req.Gender = strings.ToUpper(strings.TrimSpace(req.Gender))
	req.Address = strings.TrimSpace(req.Address)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	return req
}

func eventData(p *Patient) messaging.PatientData {
	return messaging.PatientData{
		PatientID:   p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		BirthDate:   p.BirthDate,
		Gender:      p.Gender,
		Address:     p.Address,
		PhoneNumber: p.PhoneNumber,
	}
}
