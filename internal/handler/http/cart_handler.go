package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/a-berezin/coffeeshop/internal/cart"
	"github.com/a-berezin/coffeeshop/internal/discount"
	"github.com/a-berezin/coffeeshop/internal/menu"
)

type AddCartItemRequest struct {
	MenuItemID string `json:"menu_item_id" validate:"required,uuid4"`
	Quantity   int    `json:"quantity" validate:"required,gte=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type ApplyDiscountRequest struct {
	CodeOrID string `json:"code_or_id" validate:"required"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{service: service, validate: validator.New()}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart/items", h.handleAddItem)
	router.Put("/cart/items/{menuItemId}", h.handleUpdateQuantity)
	router.Delete("/cart/items/{menuItemId}", h.handleRemoveItem)
	router.Delete("/cart", h.handleClear)
	router.Post("/cart/discount", h.handleApplyDiscount)
	router.Delete("/cart/discount", h.handleRemoveDiscount)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	c, err := h.service.GetCart(r.Context(), customerID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get cart")
		respondWithError(w, http.StatusInternalServerError, "Failed to get cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var payload AddCartItemRequest
	if !h.decode(w, r, &payload) {
		return
	}

	menuItemID, err := parseIDParam(payload.MenuItemID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid menu_item_id")
		return
	}

	c, err := h.service.AddItem(r.Context(), customerID, menuItemID, payload.Quantity)
	if err != nil {
		h.respondCartError(w, err, "Failed to add item to cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	menuItemID, err := parseIDParam(chi.URLParam(r, "menuItemId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload UpdateCartItemRequest
	if !h.decode(w, r, &payload) {
		return
	}

	c, err := h.service.UpdateQuantity(r.Context(), customerID, menuItemID, payload.Quantity)
	if err != nil {
		h.respondCartError(w, err, "Failed to update cart item")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	menuItemID, err := parseIDParam(chi.URLParam(r, "menuItemId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.service.RemoveItem(r.Context(), customerID, menuItemID)
	if err != nil {
		h.respondCartError(w, err, "Failed to remove item from cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	c, err := h.service.Clear(r.Context(), customerID)
	if err != nil {
		h.respondCartError(w, err, "Failed to clear cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleApplyDiscount(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var payload ApplyDiscountRequest
	if !h.decode(w, r, &payload) {
		return
	}

	result, c, err := h.service.ApplyDiscount(r.Context(), customerID, payload.CodeOrID)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrCartEmpty):
			respondWithError(w, http.StatusBadRequest, "Cart is empty")
		case errors.Is(err, discount.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Discount not found")
		default:
			log.Error().Err(err).Msg("Failed to apply discount")
			respondWithError(w, http.StatusInternalServerError, "Failed to apply discount")
		}
		return
	}

	if !result.Valid {
		respondWithJSON(w, http.StatusBadRequest, result)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"result": result,
		"cart":   c,
	})
}

func (h *CartHandler) handleRemoveDiscount(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	c, err := h.service.RemoveDiscount(r.Context(), customerID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to remove discount from cart")
		respondWithError(w, http.StatusInternalServerError, "Failed to remove discount from cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondWithError(w, http.StatusBadRequest, "Quantity must be at least 1")
	case errors.Is(err, cart.ErrItemNotInCart):
		respondWithError(w, http.StatusNotFound, "Item is not in the cart")
	case errors.Is(err, cart.ErrItemUnavailable):
		respondWithError(w, http.StatusConflict, "Menu item is not available")
	case errors.Is(err, menu.ErrItemNotFound):
		respondWithError(w, http.StatusNotFound, "Menu item not found")
	default:
		log.Error().Err(err).Msg(fallback)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *CartHandler) decode(w http.ResponseWriter, r *http.Request, payload interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
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
		return false
	}

	return true
}
