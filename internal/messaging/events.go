package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys
const (
	EventPatientCreated = "patient.created"
	EventPatientUpdated = "patient.updated"
	EventPatientDeleted = "patient.deleted"
)

// ServiceName is stamped on every event this service emits.
const ServiceName = "patient-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// PatientData is the patient snapshot carried by created and updated events.
type PatientData struct {
	PatientID   int64  `json:"patient_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	BirthDate   string `json:"birth_date"`
	Gender      string `json:"gender"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type PatientCreatedEvent struct {
	BaseEvent
	Data PatientData `json:"data"`
}

type PatientUpdatedEvent struct {
	BaseEvent
	Data PatientData `json:"data"`
}

type PatientDeletedEvent struct {
	BaseEvent
	Data PatientDeletedData `json:"data"`
}

type PatientDeletedData struct {
	PatientID int64     `json:"patient_id"`
	LastName  string    `json:"last_name"`
	DeletedAt time.Time `json:"deleted_at"`
}

// NewBaseEvent creates a base event with a fresh id and a UTC timestamp.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}
