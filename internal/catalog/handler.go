// internal/catalog/handler.go
package catalog

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

// Routes registers the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/items", h.HandleAddItem)
	r.Get("/items", h.HandleListItems)
	r.Get("/items/{barcode}", h.HandleGetItem)
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	item, err := h.service.AddItem(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, items)
}
