package adaptor

import (
	"encoding/json"
	"net/http"

	"servicehub/internal/data/entity"
	"servicehub/internal/dto/request"
	"servicehub/internal/usecase"
	"servicehub/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingHandler serves the customer-facing booking surface plus the admin
// force-assignment.
type BookingHandler struct {
	bookings usecase.BookingService
	reviews  usecase.ReviewService
	log      *zap.Logger
}

func NewBookingHandler(bookings usecase.BookingService, reviews usecase.ReviewService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		reviews:  reviews,
		log:      log.With(zap.String("handler", "booking")),
	}
}

func bookingIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /api/bookings (customer)
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.bookings.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "success", booking)
}

// List handles GET /api/bookings (customer)
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	bookings, err := h.bookings.ListForCustomer(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.log, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// Get handles GET /api/bookings/{id}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	role, _ := utils.GetRoleFromContext(r.Context())

	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	booking, err := h.bookings.GetByID(r.Context(), bookingID, userID, entity.UserRole(role))
	if err != nil {
		writeServiceError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// Cancel handles PUT /api/bookings/{id}/cancel
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	role, _ := utils.GetRoleFromContext(r.Context())

	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	booking, err := h.bookings.Cancel(r.Context(), bookingID, userID, entity.UserRole(role))
	if err != nil {
		writeServiceError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// Assign handles PUT /api/admin/bookings/{id}/assign (admin only)
func (h *BookingHandler) Assign(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	var req request.AssignWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	workerID, err := uuid.Parse(req.WorkerID)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid worker ID", nil)
		return
	}

	booking, err := h.bookings.Assign(r.Context(), bookingID, workerID, adminID)
	if err != nil {
		writeServiceError(w, h.log, err, "assign worker")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// Review handles POST /api/bookings/{id}/review (customer)
func (h *BookingHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	var req request.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	review, err := h.reviews.Create(r.Context(), bookingID, userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create review")
		return
	}

	utils.ResponseCreated(w, "success", review)
}
