package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/medilabo/patient-service/internal/auth"
	"github.com/medilabo/patient-service/internal/messaging"
	"github.com/medilabo/patient-service/internal/patient"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Patients patient.ServiceInterface
	// Guard enforces bearer authentication and permissions; nil disables auth.
	Guard          *auth.Guard
	Metrics        HTTPMetrics
	Logger         zerolog.Logger
	AllowedOrigins []string
	Tracing        bool
}

// SetupRouter initializes all routes for the application
func SetupRouter(deps Dependencies) http.Handler {
	patientHandler := patient.NewHandler(deps.Patients, deps.Logger)

	r := mux.NewRouter()
	if deps.Tracing {
		r.Use(otelmux.Middleware(messaging.ServiceName))
	}
	r.Use(RequestID, Recover(deps.Logger), AccessLog(deps.Logger, deps.Metrics))

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"patient-service"}`))
	}).Methods(http.MethodGet)

	protect := func(permission string, h http.HandlerFunc) http.Handler {
		if deps.Guard == nil {
			return h
		}
		return deps.Guard.Protect(permission, h)
	}

	routes := []struct {
		method     string
		path       string
		permission string
		handler    http.HandlerFunc
	}{
		{http.MethodGet, "/patients", auth.PermissionPatientView, patientHandler.ListPatients},
		{http.MethodPost, "/patients", auth.PermissionPatientCreate, patientHandler.CreatePatient},
		{http.MethodGet, "/patients/{lastname}", auth.PermissionPatientView, patientHandler.GetPatientByLastName},
		{http.MethodPut, "/patients/{id:[0-9]+}", auth.PermissionPatientUpdate, patientHandler.UpdatePatient},
		{http.MethodDelete, "/patients/{id:[0-9]+}", auth.PermissionPatientDelete, patientHandler.DeletePatient},
	}
	for _, rt := range routes {
		r.Handle(rt.path, protect(rt.permission, rt.handler)).Methods(rt.method)
	}

	return CORSMiddleware(deps.AllowedOrigins)(r)
}
