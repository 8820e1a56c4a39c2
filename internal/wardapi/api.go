// Package wardapi exposes the triage engine over HTTP for the
// presentation layer.
package wardapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/wardwatch/internal/ward"
)

// TriageService defines the business operations wardapi needs.
type TriageService interface {
	Patients(ctx context.Context) []ward.Patient
	TriageView(ctx context.Context, c ward.Criteria) (*ward.View, error)
	AlertHistory(ctx context.Context, patientID int) ([]ward.Alert, error)
	AcknowledgeActive(ctx context.Context, patientID int) (int, error)
	SnoozeActive(ctx context.Context, patientID int, d time.Duration) (int, error)
	Escalate(ctx context.Context, patientID int) error
	RegenerateFeed(ctx context.Context) ([]ward.Alert, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/patients", a.handleListPatients)
		r.Get("/triage", a.handleTriageView)
		r.Get("/patients/{id}/alerts", a.handleAlertHistory)
		r.Post("/patients/{id}/acknowledge", a.handleAcknowledge)
		r.Post("/patients/{id}/snooze", a.handleSnooze)
		r.Post("/patients/{id}/escalate", a.handleEscalate)
		r.Post("/feed/regenerate", a.handleRegenerateFeed)
	})
}

func (a *API) handleListPatients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Patients(r.Context()))
}

func (a *API) handleTriageView(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		http.Error(w, `{"error":"invalid criteria"}`, http.StatusBadRequest)
		return
	}

	view, err := a.svc.TriageView(r.Context(), criteria)
	if err != nil {
		if errors.Is(err, ward.ErrInvalidCriteria) {
			http.Error(w, `{"error":"invalid criteria"}`, http.StatusBadRequest)
			return
		}
		a.logger.Error(r.Context(), err, "triage view failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.Int("wardwatch.view.alerts", len(view.Alerts)),
		attribute.Int("wardwatch.view.critical", view.Summary.Critical),
	)

	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}

	history, err := a.svc.AlertHistory(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "alert history failed", "patient_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// criteriaFromQuery builds filter criteria from query parameters. Absent
// severity/category parameters default to all-selected, matching the
// dashboard's default sidebar state; supplying any value narrows the set.
func criteriaFromQuery(r *http.Request) (ward.Criteria, error) {
	c := ward.AllCriteria()
	q := r.URL.Query()

	if vals, ok := q["severity"]; ok {
		c.Severities = c.Severities[:0]
		for _, v := range vals {
			s, err := ward.ParseSeverity(v)
			if err != nil {
				return ward.Criteria{}, err
			}
			c.Severities = append(c.Severities, s)
		}
	}
	if vals, ok := q["category"]; ok {
		c.Categories = c.Categories[:0]
		for _, v := range vals {
			cat, err := ward.ParseCategory(v)
			if err != nil {
				return ward.Criteria{}, err
			}
			c.Categories = append(c.Categories, cat)
		}
	}
	if v := q.Get("quiet"); v != "" {
		quiet, err := strconv.ParseBool(v)
		if err != nil {
			return ward.Criteria{}, ward.ErrInvalidCriteria
		}
		c.QuietMode = quiet
	}
	c.Search = q.Get("q")
	return c, nil
}

// patientID parses the {id} route parameter, writing a 400 on failure.
func patientID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid patient id"}`, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
