package scheduling

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kidsvax/clinic-platform/pkg/logging"
)

// Handler exposes the scheduling engine over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a scheduling handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("scheduling: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type errorResponse struct {
	Code    string `json:"code"`
	Vaccine string `json:"vaccine,omitempty"`
	Message string `json:"message"`
}

// ScheduleVaccine handles POST /bookings/vaccine
func (h *Handler) ScheduleVaccine(w http.ResponseWriter, r *http.Request) {
	var req ScheduleVaccineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.ScheduleVaccine(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// SchedulePackage handles POST /bookings/package
func (h *Handler) SchedulePackage(w http.ResponseWriter, r *http.Request) {
	var req SchedulePackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.SchedulePackage(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type rescheduleBody struct {
	NewDate time.Time `json:"new_date"`
}

// Reschedule handles POST /appointments/{appointmentID}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	apptID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}
	var body rescheduleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), RescheduleRequest{
		AppointmentID: apptID,
		NewDate:       body.NewDate,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if verr, ok := AsValidation(err); ok {
		writeJSON(w, statusForCode(verr.Code), errorResponse{
			Code:    string(verr.Code),
			Vaccine: verr.VaccineName,
			Message: verr.Reason,
		})
		return
	}
	h.logger.Error("scheduling request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func statusForCode(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeIneligible, CodeIncompatible:
		return http.StatusUnprocessableEntity
	case CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
