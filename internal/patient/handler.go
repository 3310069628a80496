package patient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/medilabo/patient-service/internal/pagination"
)

type Handler struct {
	service ServiceInterface
	logger  zerolog.Logger
}

func NewHandler(service ServiceInterface, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With().Str("component", "patient_handler").Logger(),
	}
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (h *Handler) GetPatientByLastName(w http.ResponseWriter, r *http.Request) {
	lastName := mux.Vars(r)["lastname"]
	h.logger.Info().Str("last_name", lastName).Msg("retrieve patient by last name")

	patient, err := h.service.GetPatientByLastName(r.Context(), lastName)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, patient)
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	h.logger.Info().Msg("retrieve all patients")

	if pagination.Requested(r) {
		page, err := h.service.ListPatientsWithPagination(r.Context(), pagination.ParseParams(r))
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		setPaginationHeaders(w, page.Pagination)
		respondJSON(w, http.StatusOK, page.Patients)
		return
	}

	patients, err := h.service.ListPatients(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, patients)
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	h.logger.Info().Msg("request: add a new patient")

	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	patient, err := h.service.CreatePatient(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info().
		Int64("patient_id", patient.ID).
		Str("first_name", patient.FirstName).
		Str("last_name", patient.LastName).
		Msg("patient added")

	w.Header().Set("Location", location(patient))
	respondJSON(w, http.StatusCreated, patient)
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.patientID(w, r)
	if !ok {
		return
	}
	h.logger.Info().Int64("patient_id", id).Msg("request: update patient")

	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	patient, err := h.service.UpdatePatient(r.Context(), id, req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info().Int64("patient_id", id).Msg("patient updated")

	w.Header().Set("Location", location(patient))
	respondJSON(w, http.StatusCreated, patient)
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.patientID(w, r)
	if !ok {
		return
	}
	h.logger.Info().Int64("patient_id", id).Msg("request: delete patient")

	patient, err := h.service.DeletePatient(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info().Int64("patient_id", id).Msg("patient deleted")
	respondJSON(w, http.StatusOK, patient)
}

// patientID parses the {id} route variable, answering 400 when it does not fit an int64.
func (h *Handler) patientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", ErrInvalidPatientID.Error()+": "+raw)
		return 0, false
	}
	return id, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		respondValidationError(w, ve)
	case errors.Is(err, ErrPatientNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Patient not found")
	case errors.Is(err, ErrInvalidPatientID):
		respondError(w, http.StatusBadRequest, "invalid_id", err.Error())
	default:
		h.logger.Error().Err(err).Msg("patient request failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func location(p *Patient) string {
	return "/patients/" + url.PathEscape(p.LastName)
}

func setPaginationHeaders(w http.ResponseWriter, meta pagination.Meta) {
	w.Header().Set("X-Total-Count", strconv.Itoa(meta.TotalRecords))
	w.Header().Set("X-Page", strconv.Itoa(meta.CurrentPage))
	w.Header().Set("X-Per-Page", strconv.Itoa(meta.PerPage))
	w.Header().Set("X-Total-Pages", strconv.Itoa(meta.TotalPages))
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}

func respondValidationError(w http.ResponseWriter, ve *ValidationError) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: ErrValidation.Error(),
		Details: ve.Fields,
	})
}
