package wardapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/wardwatch/internal/ward"
)

// defaultSnoozeMinutes matches the dashboard's "Snooze 30m" action when
// the request body omits a duration.
const defaultSnoozeMinutes = 30

func (a *API) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}

	n, err := a.svc.AcknowledgeActive(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "acknowledge failed", "patient_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": n})
}

func (a *API) handleSnooze(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}

	var body struct {
		Minutes int `json:"minutes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
			return
		}
	}
	if body.Minutes == 0 {
		body.Minutes = defaultSnoozeMinutes
	}

	n, err := a.svc.SnoozeActive(r.Context(), id, time.Duration(body.Minutes)*time.Minute)
	if err != nil {
		if errors.Is(err, ward.ErrInvalidCriteria) {
			http.Error(w, `{"error":"invalid snooze duration"}`, http.StatusBadRequest)
			return
		}
		a.logger.Error(r.Context(), err, "snooze failed", "patient_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"snoozed": n, "minutes": body.Minutes})
}

func (a *API) handleEscalate(w http.ResponseWriter, r *http.Request) {
	id, ok := patientID(w, r)
	if !ok {
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int("wardwatch.escalate.patient_id", id))

	if err := a.svc.Escalate(r.Context(), id); err != nil {
		a.logger.Error(r.Context(), err, "escalate failed", "patient_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"escalated": id})
}

func (a *API) handleRegenerateFeed(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.svc.RegenerateFeed(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "feed regeneration failed")
		http.Error(w, `{"error":"feed generation failed"}`, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alerts": len(alerts)})
}
