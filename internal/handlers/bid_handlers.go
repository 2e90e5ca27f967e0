package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Ossmium/avito/internal/models"
	"github.com/Ossmium/avito/internal/services"
	"github.com/Ossmium/avito/internal/utils"

	"go.uber.org/zap"
)

// BidHandler - структура для обработки HTTP-запросов.
type BidHandler struct {
	Service   *services.BidService
	Decisions *services.DecisionService
	Logger    *zap.SugaredLogger
	Timeout   time.Duration
}

// NewBidHandler создает новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, decisions *services.DecisionService, logger *zap.SugaredLogger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service:   service,
		Decisions: decisions,
		Logger:    logger,
		Timeout:   timeout,
	}
}

// writeJSON отправляет ответ в формате JSON.
func (h *BidHandler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Errorw("failed to encode response", "error", err)
	}
}

// writeError логирует ошибку и отправляет её вызывающему.
func (h *BidHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	h.Logger.Infow(fallback, "error", err)
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback)
}

// CreateBid обрабатывает запросы для создания предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&bidReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.Service.CreateBid(ctx, bidReq)
	if err != nil {
		h.writeError(w, err, "failed to create bid")
		return
	}

	h.writeJSON(w, bid)
}

// GetUserBid обрабатывает запросы для получения списка предложений пользователя.
func (h *BidHandler) GetUserBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	username := r.URL.Query().Get("username")

	bids, err := h.Service.GetUserBid(ctx, limitStr, offsetStr, username)
	if err != nil {
		h.writeError(w, err, "failed to fetch bids")
		return
	}

	h.writeJSON(w, bids)
}

// GetTenderBid обрабатывает запросы для получения списка предложений тендера.
func (h *BidHandler) GetTenderBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderID := r.PathValue("tenderId")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	username := r.URL.Query().Get("username")

	bids, err := h.Service.GetTenderBid(ctx, username, tenderID, limitStr, offsetStr)
	if err != nil {
		h.writeError(w, err, "failed to fetch bids")
		return
	}

	h.writeJSON(w, bids)
}

// GetBidStatus обрабатывает запросы для получения статуса предложения.
func (h *BidHandler) GetBidStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidID := r.PathValue("bidId")
	username := r.URL.Query().Get("username")

	status, err := h.Service.GetBidStatus(ctx, bidID, username)
	if err != nil {
		h.writeError(w, err, "failed to fetch bid status")
		return
	}

	h.writeJSON(w, status)
}

// UpdateBidStatus обрабатывает запросы для изменения статуса предложения.
func (h *BidHandler) UpdateBidStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidID := r.PathValue("bidId")
	status := r.URL.Query().Get("status")
	username := r.URL.Query().Get("username")

	bid, err := h.Service.UpdateBidStatus(ctx, bidID, status, username)
	if err != nil {
		h.writeError(w, err, "failed to update bid status")
		return
	}

	h.writeJSON(w, bid)
}

// EditBid обрабатывает запросы для изменения предложения.
func (h *BidHandler) EditBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PATCH is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidID := r.PathValue("bidId")
	username := r.URL.Query().Get("username")

	var updateFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updateFields); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updatedBid, err := h.Service.EditBid(ctx, bidID, username, updateFields)
	if err != nil {
		h.writeError(w, err, "failed to update bid")
		return
	}

	h.writeJSON(w, updatedBid)
}

// SubmitBidDecision обрабатывает запросы для отправки решения по предложению.
func (h *BidHandler) SubmitBidDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidID := r.PathValue("bidId")
	decision := r.URL.Query().Get("decision")
	username := r.URL.Query().Get("username")

	bid, err := h.Decisions.SubmitBidDecision(ctx, bidID, decision, username)
	if err != nil {
		h.writeError(w, err, "failed to submit bid decision")
		return
	}

	h.writeJSON(w, bid)
}

// SubmitBidFeedback обрабатывает запросы для отправки отзыва на предложение.
func (h *BidHandler) SubmitBidFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidID := r.PathValue("bidId")
	bidFeedback := r.URL.Query().Get("bidFeedback")
	username := r.URL.Query().Get("username")

	bid, err := h.Service.SubmitBidFeedback(ctx, bidID, bidFeedback, username)
	if err != nil {
		h.writeError(w, err, "failed to submit bid feedback")
		return
	}

	h.writeJSON(w, bid)
}

// RollbackBid обрабатывает запросы для отката версии предложения.
func (h *BidHandler) RollbackBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidID := r.PathValue("bidId")
	versionStr := r.PathValue("version")
	username := r.URL.Query().Get("username")

	updatedBid, err := h.Service.RollbackBid(ctx, bidID, username, versionStr)
	if err != nil {
		h.writeError(w, err, "failed to rollback bid")
		return
	}

	h.writeJSON(w, updatedBid)
}

// GetBidReviews обрабатывает запросы для получения отзывов на предложения.
func (h *BidHandler) GetBidReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderID := r.PathValue("tenderId")
	authorUsername := r.URL.Query().Get("authorUsername")
	requesterUsername := r.URL.Query().Get("requesterUsername")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	reviews, err := h.Service.GetBidReviews(ctx, tenderID, authorUsername, requesterUsername, limitStr, offsetStr)
	if err != nil {
		h.writeError(w, err, "failed to fetch bid reviews")
		return
	}

	h.writeJSON(w, reviews)
}
