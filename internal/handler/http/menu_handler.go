package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/a-berezin/coffeeshop/internal/menu"
)

type MenuItemRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Category    string  `json:"category" validate:"required"`
	IsAvailable *bool   `json:"is_available"`
}

type MenuHandler struct {
	service  menu.Service
	validate *validator.Validate
}

func NewMenuHandler(service menu.Service) *MenuHandler {
	return &MenuHandler{service: service, validate: validator.New()}
}

func (h *MenuHandler) RegisterRoutes(router chi.Router) {
	router.Get("/menu", h.handleListItems)
	router.Get("/menu/{id}", h.handleGetItem)
	router.Post("/admin/menu", h.handleCreateItem)
	router.Put("/admin/menu/{id}", h.handleUpdateItem)
	router.Delete("/admin/menu/{id}", h.handleDeleteItem)
}

func (h *MenuHandler) handleListItems(w http.ResponseWriter, r *http.Request) {
	category := menu.Category(r.URL.Query().Get("category"))

	items, err := h.service.ListItems(r.Context(), category)
	if err != nil {
		if errors.Is(err, menu.ErrInvalidCategory) {
			respondWithError(w, http.StatusBadRequest, "Invalid category")
			return
		}
		log.Error().Err(err).Msg("Failed to list menu items")
		respondWithError(w, http.StatusInternalServerError, "Failed to list menu items")
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.GetItemByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, menu.ErrItemNotFound) {
			respondWithError(w, http.StatusNotFound, "Menu item not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get menu item")
		respondWithError(w, http.StatusInternalServerError, "Failed to get menu item")
		return
	}

	respondWithJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	created, err := h.service.CreateItem(r.Context(), item)
	if err != nil {
		if errors.Is(err, menu.ErrInvalidCategory) || errors.Is(err, menu.ErrNegativePrice) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Failed to create menu item")
		respondWithError(w, http.StatusInternalServerError, "Failed to create menu item")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *MenuHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	item.ID = id

	if err := h.service.UpdateItem(r.Context(), item); err != nil {
		switch {
		case errors.Is(err, menu.ErrItemNotFound):
			respondWithError(w, http.StatusNotFound, "Menu item not found")
		case errors.Is(err, menu.ErrInvalidCategory), errors.Is(err, menu.ErrNegativePrice):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Msg("Failed to update menu item")
			respondWithError(w, http.StatusInternalServerError, "Failed to update menu item")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		if errors.Is(err, menu.ErrItemNotFound) {
			respondWithError(w, http.StatusNotFound, "Menu item not found")
			return
		}
		log.Error().Err(err).Msg("Failed to delete menu item")
		respondWithError(w, http.StatusInternalServerError, "Failed to delete menu item")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Menu item deleted successfully"})
}

func (h *MenuHandler) decodeItem(w http.ResponseWriter, r *http.Request) (*menu.Item, bool) {
	var payload MenuItemRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return nil, false
	}

	if err := h.validate.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return nil, false
	}

	available := true
	if payload.IsAvailable != nil {
		available = *payload.IsAvailable
	}

	return &menu.Item{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
		Category:    menu.Category(payload.Category),
		IsAvailable: available,
	}, true
}
