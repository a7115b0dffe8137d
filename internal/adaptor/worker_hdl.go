package adaptor

import (
	"encoding/json"
	"net/http"

	"servicehub/internal/data/entity"
	"servicehub/internal/dto/request"
	"servicehub/internal/usecase"
	"servicehub/pkg/utils"

	"go.uber.org/zap"
)

// WorkerHandler serves the worker-side surface: claiming and driving jobs,
// the completion handshake, availability, earnings, and reviews received.
type WorkerHandler struct {
	bookings   usecase.BookingService
	completion usecase.CompletionService
	workers    usecase.WorkerService
	reviews    usecase.ReviewService
	log        *zap.Logger
}

func NewWorkerHandler(
	bookings usecase.BookingService,
	completion usecase.CompletionService,
	workers usecase.WorkerService,
	reviews usecase.ReviewService,
	log *zap.Logger,
) *WorkerHandler {
	return &WorkerHandler{
		bookings:   bookings,
		completion: completion,
		workers:    workers,
		reviews:    reviews,
		log:        log.With(zap.String("handler", "worker")),
	}
}

// Accept handles POST /api/worker/bookings/{id}/accept
func (h *WorkerHandler) Accept(w http.ResponseWriter, r *http.Request) {
	workerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	// Body is optional; clients that track the observed status send it as
	// the compare-and-set precondition.
	var req request.AcceptBookingRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.ResponseBadRequest(w, "Invalid request body", nil)
			return
		}
		if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
			utils.ResponseBadRequest(w, "Validation failed", validationErrors)
			return
		}
	}

	booking, err := h.bookings.Accept(r.Context(), bookingID, workerID, entity.BookingStatus(req.ExpectedStatus))
	if err != nil {
		writeServiceError(w, h.log, err, "accept booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// Reject handles POST /api/worker/bookings/{id}/reject
func (h *WorkerHandler) Reject(w http.ResponseWriter, r *http.Request) {
	workerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	if err := h.bookings.Reject(r.Context(), bookingID, workerID); err != nil {
		writeServiceError(w, h.log, err, "reject booking")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// Start handles POST /api/worker/bookings/{id}/start
func (h *WorkerHandler) Start(w http.ResponseWriter, r *http.Request) {
	workerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	booking, err := h.bookings.Start(r.Context(), bookingID, workerID)
	if err != nil {
		writeServiceError(w, h.log, err, "start booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// RequestCompletion handles POST /api/worker/bookings/{id}/complete/request
func (h *WorkerHandler) RequestCompletion(w http.ResponseWriter, r *http.Request) {
	workerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.completion.RequestCompletion(r.Context(), bookingID, workerID)
	if err != nil {
		writeServiceError(w, h.log, err, "request completion code")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// VerifyCompletion handles POST /api/worker/bookings/{id}/complete/verify
func (h *WorkerHandler) VerifyCompletion(w http.ResponseWriter, r *http.Request) {
	workerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := bookingIDParam(w, r)
	if !ok {
		return
	}

	var req request.VerifyCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	booking, err := h.completion.VerifyCompletion(r.Context(), bookingID, workerID, req.Code)
	if err != nil {
		writeServiceError(w, h.log, err, "verify completion code")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// SetAvailability handles PUT /api/worker/availability
func (h *WorkerHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	workerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.workers.SetAvailability(r.Context(), workerID, *req.Available); err != nil {
		writeServiceError(w, h.log, err, "set availability")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// ListJobs handles GET /api/worker/jobs
func (h *WorkerHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	workerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	jobs, err := h.workers.ListJobs(r.Context(), workerID, req)
	if err != nil {
		writeServiceError(w, h.log, err, "list worker jobs")
		return
	}

	utils.ResponseSuccess(w, "success", jobs)
}

// Earnings handles GET /api/worker/earnings
func (h *WorkerHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	workerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	ledger, err := h.workers.EarningsLedger(r.Context(), workerID, req)
	if err != nil {
		writeServiceError(w, h.log, err, "list worker earnings")
		return
	}

	utils.ResponseSuccess(w, "success", ledger)
}

// Reviews handles GET /api/worker/reviews
func (h *WorkerHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	workerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	reviews, err := h.reviews.ListForWorker(r.Context(), workerID, req)
	if err != nil {
		writeServiceError(w, h.log, err, "list worker reviews")
		return
	}

	utils.ResponseSuccess(w, "success", reviews)
}
