package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/a-berezin/coffeeshop/internal/discount"
)

type DiscountRequest struct {
	Name               string    `json:"name" validate:"required,max=255"`
	Code               string    `json:"code" validate:"max=50"`
	Description        string    `json:"description"`
	Type               string    `json:"type" validate:"required"`
	Value              float64   `json:"value" validate:"gte=0"`
	MinOrderValue      float64   `json:"min_order_value" validate:"gte=0"`
	ValidFrom          time.Time `json:"valid_from" validate:"required"`
	ValidTo            time.Time `json:"valid_to" validate:"required"`
	MaxUses            *int      `json:"max_uses" validate:"omitempty,gte=1"`
	MaxUsesPerCustomer *int      `json:"max_uses_per_customer" validate:"omitempty,gte=1"`
	IsActive           *bool     `json:"is_active"`
	SpecificItems      []string  `json:"specific_items" validate:"dive,uuid4"`
}

type DiscountHandler struct {
	service  discount.Service
	validate *validator.Validate
}

func NewDiscountHandler(service discount.Service) *DiscountHandler {
	return &DiscountHandler{service: service, validate: validator.New()}
}

func (h *DiscountHandler) RegisterRoutes(router chi.Router) {
	router.Get("/discounts/available", h.handleListAvailable)
	router.Get("/admin/discounts", h.handleListDiscounts)
	router.Get("/admin/discounts/{id}", h.handleGetDiscount)
	router.Post("/admin/discounts", h.handleCreateDiscount)
	router.Put("/admin/discounts/{id}", h.handleUpdateDiscount)
	router.Delete("/admin/discounts/{id}", h.handleDeleteDiscount)
}

func (h *DiscountHandler) handleListAvailable(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	discounts, err := h.service.ListAvailable(r.Context(), customerID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list available discounts")
		respondWithError(w, http.StatusInternalServerError, "Failed to list available discounts")
		return
	}

	respondWithJSON(w, http.StatusOK, discounts)
}

func (h *DiscountHandler) handleListDiscounts(w http.ResponseWriter, r *http.Request) {
	discounts, err := h.service.ListDiscounts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list discounts")
		respondWithError(w, http.StatusInternalServerError, "Failed to list discounts")
		return
	}

	respondWithJSON(w, http.StatusOK, discounts)
}

func (h *DiscountHandler) handleGetDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.service.GetDiscountByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, discount.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Discount not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get discount")
		respondWithError(w, http.StatusInternalServerError, "Failed to get discount")
		return
	}

	respondWithJSON(w, http.StatusOK, d)
}

func (h *DiscountHandler) handleCreateDiscount(w http.ResponseWriter, r *http.Request) {
	d, ok := h.decodeDiscount(w, r)
	if !ok {
		return
	}

	created, err := h.service.CreateDiscount(r.Context(), d)
	if err != nil {
		if errors.Is(err, discount.ErrCodeExists) {
			respondWithError(w, http.StatusConflict, "Discount code already exists")
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *DiscountHandler) handleUpdateDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, ok := h.decodeDiscount(w, r)
	if !ok {
		return
	}
	d.ID = id

	if err := h.service.UpdateDiscount(r.Context(), d); err != nil {
		switch {
		case errors.Is(err, discount.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Discount not found")
		case errors.Is(err, discount.ErrCodeExists):
			respondWithError(w, http.StatusConflict, "Discount code already exists")
		default:
			respondWithError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, d)
}

func (h *DiscountHandler) handleDeleteDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.DeleteDiscount(r.Context(), id); err != nil {
		if errors.Is(err, discount.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Discount not found")
			return
		}
		log.Error().Err(err).Msg("Failed to delete discount")
		respondWithError(w, http.StatusInternalServerError, "Failed to delete discount")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Discount deleted successfully"})
}

func (h *DiscountHandler) decodeDiscount(w http.ResponseWriter, r *http.Request) (*discount.Discount, bool) {
	var payload DiscountRequest

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

	specificItems := make([]uuid.UUID, 0, len(payload.SpecificItems))
	for _, raw := range payload.SpecificItems {
		itemID, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid specific_items entry")
			return nil, false
		}
		specificItems = append(specificItems, itemID)
	}

	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}

	return &discount.Discount{
		Name:               payload.Name,
		Code:               payload.Code,
		Description:        payload.Description,
		Type:               discount.Type(payload.Type),
		Value:              payload.Value,
		MinOrderValue:      payload.MinOrderValue,
		ValidFrom:          payload.ValidFrom,
		ValidTo:            payload.ValidTo,
		MaxUses:            payload.MaxUses,
		MaxUsesPerCustomer: payload.MaxUsesPerCustomer,
		IsActive:           active,
		SpecificItems:      specificItems,
	}, true
}
