package patient

import "context"

// RepositoryInterface defines the contract for patient data access
type RepositoryInterface interface {
	FindByLastName(ctx context.Context, lastName string) (*Patient, error)
	FindAll(ctx context.Context) ([]Patient, error)
	FindPage(ctx context.Context, limit, offset int) ([]Patient, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, req PatientRequest) (*Patient, error)
	Update(ctx context.Context, id int64, req PatientRequest) (*Patient, error)
	Delete(ctx context.Context, id int64) (*Patient, error)
}

// Ensure both stores implement RepositoryInterface
var (
	_ RepositoryInterface = (*Repository)(nil)
	_ RepositoryInterface = (*MemoryRepository)(nil)
)
