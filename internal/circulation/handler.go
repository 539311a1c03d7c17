// internal/circulation/handler.go
package circulation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libralend/internal/errs"
	"libralend/internal/httpx"
	"libralend/internal/membership"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the circulation endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/checkout", h.HandleCheckout)
	r.Post("/return", h.HandleReturn)
	r.Post("/renew", h.HandleRenew)

	r.Post("/reservations", h.HandleReserve)
	r.Get("/reservations", h.HandleListReservations)
	r.Get("/reservations/{reservationID}", h.HandleGetReservation)
	r.Post("/reservations/{reservationID}/cancel", h.HandleCancelReservation)
	r.Post("/reservations/{reservationID}/complete", h.HandleCompleteReservation)

	r.Get("/fines", h.HandleListFines)
	r.Post("/fines/{fineID}/collect", h.HandleCollectFine)

	r.Get("/items/{barcode}/loan", h.HandleGetOpenLoan)
	r.Get("/items/{barcode}/fines", h.HandleItemFines)
	r.Post("/items/{barcode}/fines/pay", h.HandleCollectItemFine)
	r.Get("/items/{barcode}/reservation", h.HandleItemReservation)
	r.Get("/items/{barcode}/history", h.HandleItemHistory)

	r.Get("/members/{memberID}/loans", h.HandleMemberLoans)
	r.Get("/members/{memberID}/fines", h.HandleMemberFines)
	r.Get("/members/{memberID}/reservations", h.HandleMemberReservations)
	r.Put("/members/{memberID}/status", h.HandleSetAccountStatus)

	r.Get("/loans", h.HandleListLoans)
	r.Get("/loans/overdue", h.HandleOverdueLoans)
}

// LendingRequest is the body of checkout, return and renew calls.
// ReturnedAt is only read by return; it defaults to the server's clock.
type LendingRequest struct {
	Barcode    string     `json:"barcode"`
	MemberID   string     `json:"member_id,omitempty"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// StatusRequest is the body of an account status change.
type StatusRequest struct {
	Status membership.AccountStatus `json:"status"`
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req LendingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	loan, err := h.service.Checkout(r.Context(), req.Barcode, req.MemberID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, loan)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var req LendingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	var (
		receipt *ReturnReceipt
		err     error
	)
	if req.ReturnedAt != nil {
		receipt, err = h.service.ReturnItemAt(r.Context(), req.Barcode, *req.ReturnedAt)
	} else {
		receipt, err = h.service.ReturnItem(r.Context(), req.Barcode)
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	var req LendingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	loan, err := h.service.Renew(r.Context(), req.Barcode, req.MemberID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loan)
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	var req LendingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	reservation, err := h.service.Reserve(r.Context(), req.Barcode, req.MemberID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, reservation)
}

func (h *Handler) HandleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "reservationID")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	reservation, err := h.service.Reservation(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, reservation)
}

func (h *Handler) HandleCancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "reservationID")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	reservation, err := h.service.CancelReservation(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, reservation)
}

func (h *Handler) HandleCompleteReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "reservationID")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	reservation, err := h.service.CompleteReservation(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, reservation)
}

func (h *Handler) HandleCollectFine(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "fineID")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	fine, err := h.service.CollectFine(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, fine)
}

func (h *Handler) HandleCollectItemFine(w http.ResponseWriter, r *http.Request) {
	fine, err := h.service.CollectItemFine(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, fine)
}

func (h *Handler) HandleListFines(w http.ResponseWriter, r *http.Request) {
	unpaidOnly, err := unpaidParam(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	fines, err := h.service.Fines(r.Context(), unpaidOnly)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, fines)
}

func (h *Handler) HandleListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.Loans(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loans)
}

func (h *Handler) HandleListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.service.Reservations(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, reservations)
}

func (h *Handler) HandleItemReservation(w http.ResponseWriter, r *http.Request) {
	reservation, err := h.service.WaitingReservation(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, reservation)
}

func (h *Handler) HandleGetOpenLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.OpenLoan(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loan)
}

func (h *Handler) HandleItemFines(w http.ResponseWriter, r *http.Request) {
	fines, err := h.service.FinesByBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, fines)
}

func (h *Handler) HandleItemHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) HandleMemberLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.LoansByMember(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loans)
}

func (h *Handler) HandleMemberFines(w http.ResponseWriter, r *http.Request) {
	unpaidOnly, err := unpaidParam(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	fines, err := h.service.FinesByMember(r.Context(), chi.URLParam(r, "memberID"), unpaidOnly)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, fines)
}

func (h *Handler) HandleMemberReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.service.ReservationsByMember(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, reservations)
}

func (h *Handler) HandleSetAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	member, err := h.service.SetAccountStatus(r.Context(), chi.URLParam(r, "memberID"), req.Status)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) HandleOverdueLoans(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(w, errs.NewValidationError("as_of", "must be an RFC 3339 timestamp"))
			return
		}
		asOf = t
	}

	report, err := h.service.OverdueLoans(r.Context(), asOf)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, report)
}

// unpaidParam reads the optional ?unpaid= filter.
func unpaidParam(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("unpaid")
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errs.NewValidationError("unpaid", "must be a boolean")
	}
	return v, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errs.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}
