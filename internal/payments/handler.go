package payments

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/kidsvax/clinic-platform/internal/appointments"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

// Handler exposes deposit checkout over HTTP.
type Handler struct {
	service *Service
	vnpay   *VNPayService
	appts   appointments.Repository
	logger  *logging.Logger
}

// NewHandler creates the payments handler. vnpay may be nil when the fake
// provider is in use; the return route then rejects all callbacks.
func NewHandler(service *Service, vnpay *VNPayService, appts appointments.Repository, logger *logging.Logger) *Handler {
	if service == nil {
		panic("payments: service required")
	}
	if appts == nil {
		panic("payments: appointment repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, vnpay: vnpay, appts: appts, logger: logger}
}

type checkoutRequest struct {
	ChildID        uuid.UUID   `json:"child_id"`
	AppointmentIDs []uuid.UUID `json:"appointment_ids"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	ProviderRef string `json:"provider_ref"`
}

// CreateCheckout handles POST /payments/checkout
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ChildID == uuid.Nil || len(req.AppointmentIDs) == 0 {
		http.Error(w, "child_id and appointment_ids are required", http.StatusBadRequest)
		return
	}

	series := make([]*appointments.Appointment, 0, len(req.AppointmentIDs))
	for _, id := range req.AppointmentIDs {
		appt, err := h.appts.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, appointments.ErrAppointmentNotFound) {
				http.Error(w, "appointment not found", http.StatusNotFound)
				return
			}
			h.logger.Error("checkout appointment load failed", "error", err, "appointment_id", id)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if appt.ChildID != req.ChildID {
			http.Error(w, "appointment does not belong to child", http.StatusForbidden)
			return
		}
		series = append(series, appt)
	}

	resp, err := h.service.CreateDepositCheckout(r.Context(), req.ChildID, series, clientIP(r))
	if err != nil {
		h.logger.Error("checkout creation failed", "error", err, "child_id", req.ChildID)
		http.Error(w, "could not create checkout", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(checkoutResponse{
		CheckoutURL: resp.URL,
		ProviderRef: resp.ProviderRef,
	})
}

// VNPayReturn handles GET /payments/vnpay/return
func (h *Handler) VNPayReturn(w http.ResponseWriter, r *http.Request) {
	if h.vnpay == nil {
		http.Error(w, "vnpay not configured", http.StatusNotFound)
		return
	}

	txnRef, paid, err := h.vnpay.VerifyReturn(r.URL.Query())
	if err != nil {
		h.logger.Warn("vnpay return rejected", "error", err)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}
	checkoutID, err := uuid.Parse(txnRef)
	if err != nil {
		http.Error(w, "invalid transaction reference", http.StatusBadRequest)
		return
	}

	if err := h.service.Settle(r.Context(), checkoutID, paid); err != nil {
		if errors.Is(err, ErrCheckoutNotFound) {
			http.Error(w, "checkout not found", http.StatusNotFound)
			return
		}
		h.logger.Error("checkout settlement failed", "error", err, "checkout_id", checkoutID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"checkout_id": checkoutID,
		"paid":        paid,
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
