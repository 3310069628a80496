package patient

import (
	"time"

	"github.com/medilabo/patient-service/internal/pagination"
)

// Patient is a stored patient record.
type Patient struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	BirthDate   string     `json:"birth_date"` // Format: YYYY-MM-DD
	Gender      string     `json:"gender"`
	Address     string     `json:"address,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// PatientRequest is the payload accepted by create and update. Update
// replaces every mutable field.
type PatientRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	BirthDate   string `json:"birth_date" validate:"required,pastdate"`
	Gender      string `json:"gender" validate:"required,gender"`
	Address     string `json:"address" validate:"max=255"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone"`
}

// PatientPage is one page of the patient list.
type PatientPage struct {
	Patients   []Patient
	Pagination pagination.Meta
}
