package patient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medilabo/patient-service/internal/messaging"
	"github.com/medilabo/patient-service/internal/pagination"
)

// mockRepository implements RepositoryInterface for testing
type mockRepository struct {
	findByLastNameFunc func(ctx context.Context, lastName string) (*Patient, error)
	findAllFunc        func(ctx context.Context) ([]Patient, error)
	findPageFunc       func(ctx context.Context, limit, offset int) ([]Patient, error)
	countFunc          func(ctx context.Context) (int, error)
	createFunc         func(ctx context.Context, req PatientRequest) (*Patient, error)
	updateFunc         func(ctx context.Context, id int64, req PatientRequest) (*Patient, error)
	deleteFunc         func(ctx context.Context, id int64) (*Patient, error)
}

func (m *mockRepository) FindByLastName(ctx context.Context, lastName string) (*Patient, error) {
	if m.findByLastNameFunc != nil {
		return m.findByLastNameFunc(ctx, lastName)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) FindAll(ctx context.Context) ([]Patient, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) FindPage(ctx context.Context, limit, offset int) ([]Patient, error) {
	if m.findPageFunc != nil {
		return m.findPageFunc(ctx, limit, offset)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) Count(ctx context.Context) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, errors.New("not implemented")
}

func (m *mockRepository) Create(ctx context.Context, req PatientRequest) (*Patient, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) Update(ctx context.Context, id int64, req PatientRequest) (*Patient, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) Delete(ctx context.Context, id int64) (*Patient, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

// recordingPublisher captures published routing keys
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []interface{}
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, eventData)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMetrics struct {
	outcomes map[string]string
}

func (m *recordingMetrics) RecordPatientOperation(ctx context.Context, operation, outcome string) {
	if m.outcomes == nil {
		m.outcomes = map[string]string{}
	}
	m.outcomes[operation] = outcome
}

func validRequest() PatientRequest {
	return PatientRequest{
		FirstName:   "Test",
		LastName:    "TestNone",
		BirthDate:   "1966-12-31",
		Gender:      "F",
		Address:     "1 Brookside St",
		PhoneNumber: "100-222-3333",
	}
}

func newMemoryService(t *testing.T) (*Service, *MemoryRepository, *recordingPublisher) {
	t.Helper()
	repo := NewMemoryRepository()
	pub := &recordingPublisher{}
	return NewService(repo, pub, nil, zerolog.Nop()), repo, pub
}

func seed(t *testing.T, svc *Service, lastNames ...string) []*Patient {
	t.Helper()
	var out []*Patient
	for _, ln := range lastNames {
		req := validRequest()
		req.LastName = ln
		p, err := svc.CreatePatient(context.Background(), req)
		if err != nil {
			t.Fatalf("Failed to seed patient %s: %v", ln, err)
		}
		out = append(out, p)
	}
	return out
}

func TestService_GetPatientByLastName_Found(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	seeded := seed(t, svc, "TestNone", "TestBorderline")

	got, err := svc.GetPatientByLastName(context.Background(), "TestBorderline")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got.ID != seeded[1].ID {
		t.Errorf("Expected patient %d, got %d", seeded[1].ID, got.ID)
	}
}

func TestService_GetPatientByLastName_DuplicatesReturnLowestID(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	seeded := seed(t, svc, "Smith", "Jones", "Smith")

	got, err := svc.GetPatientByLastName(context.Background(), "Smith")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got.ID != seeded[0].ID {
		t.Errorf("Expected first registered patient %d, got %d", seeded[0].ID, got.ID)
	}
}

func TestService_GetPatientByLastName_NotFound(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	seed(t, svc, "TestNone")

	_, err := svc.GetPatientByLastName(context.Background(), "Unknown")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected ErrPatientNotFound, got: %v", err)
	}
}

func TestService_ListPatients_MatchesStoreSize(t *testing.T) {
	svc, repo, _ := newMemoryService(t)
	seed(t, svc, "A", "B", "C")

	patients, err := svc.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	total, _ := repo.Count(context.Background())
	if len(patients) != total || total != 3 {
		t.Errorf("Expected 3 patients, got list=%d count=%d", len(patients), total)
	}
	for i := 1; i < len(patients); i++ {
		if patients[i-1].ID >= patients[i].ID {
			t.Errorf("Expected patients ordered by id, got %d before %d", patients[i-1].ID, patients[i].ID)
		}
	}
}

func TestService_ListPatientsWithPagination(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	seed(t, svc, "A", "B", "C", "D", "E")

	page, err := svc.ListPatientsWithPagination(context.Background(), pagination.Params{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(page.Patients) != 2 || page.Patients[0].LastName != "C" {
		t.Errorf("Expected patients C and D, got %+v", page.Patients)
	}
	if page.Pagination.TotalRecords != 5 || page.Pagination.TotalPages != 3 {
		t.Errorf("Unexpected pagination meta: %+v", page.Pagination)
	}

	last, err := svc.ListPatientsWithPagination(context.Background(), pagination.Params{Page: 4, Limit: 2})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(last.Patients) != 0 {
		t.Errorf("Expected empty page past the end, got %d", len(last.Patients))
	}
}

func TestService_CreatePatient_Success(t *testing.T) {
	svc, repo, pub := newMemoryService(t)

	req := validRequest()
	req.FirstName = "  Test "
	req.Gender = "f"

	p, err := svc.CreatePatient(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if p.ID == 0 {
		t.Error("Expected generated id")
	}
	if p.FirstName != "Test" || p.Gender != "F" {
		t.Errorf("Expected trimmed and normalised fields, got %+v", p)
	}
	if p.LastName != req.LastName || p.BirthDate != req.BirthDate || p.Address != req.Address || p.PhoneNumber != req.PhoneNumber {
		t.Errorf("Expected submitted values to be reflected, got %+v", p)
	}
	if total, _ := repo.Count(context.Background()); total != 1 {
		t.Errorf("Expected store size 1, got %d", total)
	}
	if len(pub.keys) != 1 || pub.keys[0] != messaging.EventPatientCreated {
		t.Errorf("Expected patient.created event, got %v", pub.keys)
	}
	ev, ok := pub.events[0].(messaging.PatientCreatedEvent)
	if !ok || ev.Data.PatientID != p.ID {
		t.Errorf("Expected created event for patient %d, got %+v", p.ID, pub.events[0])
	}
}

func TestService_CreatePatient_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PatientRequest)
		field  string
	}{
		{"missing first name", func(r *PatientRequest) { r.FirstName = "" }, "first_name"},
		{"blank last name", func(r *PatientRequest) { r.LastName = "   " }, "last_name"},
		{"missing birth date", func(r *PatientRequest) { r.BirthDate = "" }, "birth_date"},
		{"missing gender", func(r *PatientRequest) { r.Gender = "" }, "gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, pub := newMemoryService(t)
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreatePatient(context.Background(), req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Expected ErrValidation, got: %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Fields[tt.field] == "" {
				t.Errorf("Expected %s to be reported, got %v", tt.field, err)
			}
			if total, _ := repo.Count(context.Background()); total != 0 {
				t.Errorf("Expected store untouched, got size %d", total)
			}
			if len(pub.keys) != 0 {
				t.Errorf("Expected no events, got %v", pub.keys)
			}
		})
	}
}

func TestService_CreatePatient_RepositoryError(t *testing.T) {
	mockRepo := &mockRepository{
		createFunc: func(ctx context.Context, req PatientRequest) (*Patient, error) {
			return nil, errors.New("database unavailable")
		},
	}
	metrics := &recordingMetrics{}
	svc := NewService(mockRepo, nil, metrics, zerolog.Nop())

	_, err := svc.CreatePatient(context.Background(), validRequest())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected an internal error, got: %v", err)
	}
	if metrics.outcomes["create"] != "error" {
		t.Errorf("Expected create outcome 'error', got %v", metrics.outcomes)
	}
}

func TestService_CreatePatient_PublishFailureIsIgnored(t *testing.T) {
	repo := NewMemoryRepository()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewService(repo, pub, nil, zerolog.Nop())

	if _, err := svc.CreatePatient(context.Background(), validRequest()); err != nil {
		t.Fatalf("Expected publish failure to be swallowed, got: %v", err)
	}
	if total, _ := repo.Count(context.Background()); total != 1 {
		t.Errorf("Expected patient persisted, got size %d", total)
	}
}

func TestService_UpdatePatient_Success(t *testing.T) {
	svc, repo, pub := newMemoryService(t)
	seeded := seed(t, svc, "TestNone")

	req := validRequest()
	req.FirstName = "Updated"
	req.LastName = "TestInDanger"
	req.Address = "2 High St"

	p, err := svc.UpdatePatient(context.Background(), seeded[0].ID, req)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if p.UpdatedAt == nil {
		t.Error("Expected updated_at to be set")
	}

	stored, err := repo.FindByLastName(context.Background(), "TestInDanger")
	if err != nil {
		t.Fatalf("Expected updated patient in store, got: %v", err)
	}
	if stored.ID != seeded[0].ID || stored.FirstName != "Updated" || stored.Address != "2 High St" {
		t.Errorf("Expected stored fields to match update, got %+v", stored)
	}
	if pub.keys[len(pub.keys)-1] != messaging.EventPatientUpdated {
		t.Errorf("Expected patient.updated event, got %v", pub.keys)
	}
}

func TestService_UpdatePatient_NotFound(t *testing.T) {
	svc, _, _ := newMemoryService(t)

	_, err := svc.UpdatePatient(context.Background(), 404, validRequest())
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected ErrPatientNotFound, got: %v", err)
	}
}

func TestService_UpdatePatient_InvalidPayloadLeavesStore(t *testing.T) {
	svc, repo, _ := newMemoryService(t)
	seeded := seed(t, svc, "TestNone")

	req := validRequest()
	req.Gender = "X"

	if _, err := svc.UpdatePatient(context.Background(), seeded[0].ID, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation, got: %v", err)
	}
	stored, _ := repo.FindByLastName(context.Background(), "TestNone")
	if stored.Gender != "F" || stored.UpdatedAt != nil {
		t.Errorf("Expected stored patient unchanged, got %+v", stored)
	}
}

func TestService_DeletePatient_Success(t *testing.T) {
	svc, repo, pub := newMemoryService(t)
	seeded := seed(t, svc, "A", "B")

	deleted, err := svc.DeletePatient(context.Background(), seeded[0].ID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if deleted.LastName != "A" || deleted.FirstName != seeded[0].FirstName {
		t.Errorf("Expected pre-deletion values, got %+v", deleted)
	}
	if total, _ := repo.Count(context.Background()); total != 1 {
		t.Errorf("Expected store size 1, got %d", total)
	}
	if _, err := repo.FindByLastName(context.Background(), "A"); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected deleted patient to be gone, got: %v", err)
	}
	ev, ok := pub.events[len(pub.events)-1].(messaging.PatientDeletedEvent)
	if !ok || ev.Data.PatientID != seeded[0].ID {
		t.Errorf("Expected deleted event for %d, got %+v", seeded[0].ID, pub.events[len(pub.events)-1])
	}
}

func TestService_DeletePatient_NotFound(t *testing.T) {
	metrics := &recordingMetrics{}
	svc := NewService(NewMemoryRepository(), nil, metrics, zerolog.Nop())

	_, err := svc.DeletePatient(context.Background(), 12)
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected ErrPatientNotFound, got: %v", err)
	}
	if metrics.outcomes["delete"] != "not_found" {
		t.Errorf("Expected delete outcome 'not_found', got %v", metrics.outcomes)
	}
}

func TestMemoryRepository_IDsAreNotReused(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, _ := repo.Create(ctx, validRequest())
	if _, err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	second, _ := repo.Create(ctx, validRequest())
	if second.ID == first.ID {
		t.Errorf("Expected a fresh id, got %d again", second.ID)
	}
}
