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

	"github.com/a-berezin/coffeeshop/internal/customer"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerHandler struct {
	service  customer.Service
	validate *validator.Validate
}

func NewCustomerHandler(service customer.Service) *CustomerHandler {
	return &CustomerHandler{service: service, validate: validator.New()}
}

func (h *CustomerHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/register", h.handleRegister)
	router.Post("/auth/login", h.handleLogin)
	router.Get("/auth/me", h.handleGetProfile)
}

func (h *CustomerHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload RegisterRequest
	if !h.decode(w, r, &payload) {
		return
	}

	c := customer.Customer{
		Name:  payload.Name,
		Email: payload.Email,
	}

	created, err := h.service.Register(r.Context(), &c, payload.Password)
	if err != nil {
		if errors.Is(err, customer.ErrEmailExists) {
			respondWithError(w, http.StatusConflict, "Email already exists")
			return
		}
		log.Error().Err(err).Msg("Failed to register customer")
		respondWithError(w, http.StatusInternalServerError, "Failed to register customer")
		return
	}

	respondWithJSON(w, http.StatusCreated, toCustomerResponse(created))
}

func (h *CustomerHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload LoginRequest
	if !h.decode(w, r, &payload) {
		return
	}

	c, err := h.service.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, customer.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate customer")
		respondWithError(w, http.StatusInternalServerError, "Failed to authenticate customer")
		return
	}

	respondWithJSON(w, http.StatusOK, toCustomerResponse(c))
}

func (h *CustomerHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	c, err := h.service.GetByID(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Customer not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get customer")
		respondWithError(w, http.StatusInternalServerError, "Failed to get customer")
		return
	}

	respondWithJSON(w, http.StatusOK, toCustomerResponse(c))
}

func (h *CustomerHandler) decode(w http.ResponseWriter, r *http.Request, payload interface{}) bool {
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

func toCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		IsStaff:   c.IsStaff,
		CreatedAt: c.CreatedAt,
	}
}
