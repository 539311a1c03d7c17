// internal/membership/handler.go
package membership

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"libralend/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the member endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/members", h.HandleRegisterMember)
	r.Get("/members", h.HandleListMembers)
	r.Get("/members/{memberID}", h.HandleGetMember)
}

func (h *Handler) HandleRegisterMember(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	member, err := h.service.RegisterMember(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, member)
}

func (h *Handler) HandleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.service.GetMember(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, members)
}
