package patient

import (
	"context"

	"github.com/medilabo/patient-service/internal/pagination"
)

// ServiceInterface defines the contract for patient business logic operations
type ServiceInterface interface {
	GetPatientByLastName(ctx context.Context, lastName string) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	ListPatientsWithPagination(ctx context.Context, params pagination.Params) (*PatientPage, error)
	CreatePatient(ctx context.Context, req PatientRequest) (*Patient, error)
	UpdatePatient(ctx context.Context, id int64, req PatientRequest) (*Patient, error)
	DeletePatient(ctx context.Context, id int64) (*Patient, error)
}

// MetricsRecorder counts patient operations by outcome.
type MetricsRecorder interface {
	RecordPatientOperation(ctx context.Context, operation, outcome string)
}

var _ ServiceInterface = (*Service)(nil)
