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

// TenderHandler - структура для обработки HTTP-запросов.
type TenderHandler struct {
	Service *services.TenderService
	Logger  *zap.SugaredLogger
	Timeout time.Duration
}

// NewTenderHandler создаёт новый экземпляр TenderHandler.
func NewTenderHandler(service *services.TenderService, logger *zap.SugaredLogger, timeout time.Duration) *TenderHandler {
	return &TenderHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// writeJSON отправляет ответ в формате JSON.
func (h *TenderHandler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Errorw("failed to encode response", "error", err)
	}
}

// writeError логирует ошибку и отправляет её вызывающему.
func (h *TenderHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	h.Logger.Infow(fallback, "error", err)
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback)
}

// GetTenders обрабатывает запросы для получения списка тендеров.
func (h *TenderHandler) GetTenders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	username := r.URL.Query().Get("username")
	serviceTypes := r.URL.Query()["service_type"]

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	tenders, err := h.Service.FetchTenders(ctx, username, limit, offset, serviceTypes)
	if err != nil {
		h.writeError(w, err, "failed to fetch tenders")
		return
	}

	h.writeJSON(w, tenders)
}

// CreateTender обрабатывает запросы для создания тендера.
func (h *TenderHandler) CreateTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var tenderReq models.TenderRequest
	if err := json.NewDecoder(r.Body).Decode(&tenderReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tender, err := h.Service.CreateTender(ctx, tenderReq)
	if err != nil {
		h.writeError(w, err, "failed to create tender")
		return
	}

	h.writeJSON(w, tender)
}

// GetUserTender обрабатывает запросы для получения списка тендеров пользователя.
func (h *TenderHandler) GetUserTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	username := r.URL.Query().Get("username")

	tenders, err := h.Service.GetUserTender(ctx, limitStr, offsetStr, username)
	if err != nil {
		h.writeError(w, err, "failed to fetch tenders")
		return
	}

	h.writeJSON(w, tenders)
}

// GetTenderStatus обрабатывает запросы для получения статуса тендера.
func (h *TenderHandler) GetTenderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderID := r.PathValue("tenderId")
	username := r.URL.Query().Get("username")

	status, err := h.Service.GetTenderStatus(ctx, tenderID, username)
	if err != nil {
		h.writeError(w, err, "failed to fetch tender status")
		return
	}

	h.writeJSON(w, status)
}

// UpdateTenderStatus обрабатывает запросы для изменения статуса тендера.
func (h *TenderHandler) UpdateTenderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderID := r.PathValue("tenderId")
	status := r.URL.Query().Get("status")
	username := r.URL.Query().Get("username")

	tender, err := h.Service.UpdateTenderStatus(ctx, tenderID, status, username)
	if err != nil {
		h.writeError(w, err, "failed to update tender status")
		return
	}

	h.writeJSON(w, tender)
}

// EditTender обрабатывает запросы для изменения тендера.
func (h *TenderHandler) EditTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PATCH is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderID := r.PathValue("tenderId")
	username := r.URL.Query().Get("username")

	var updateFields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updateFields); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updatedTender, err := h.Service.EditTender(ctx, tenderID, username, updateFields)
	if err != nil {
		h.writeError(w, err, "failed to update tender")
		return
	}

	h.writeJSON(w, updatedTender)
}

// RollbackTender обрабатывает запросы для отката версии тендера.
func (h *TenderHandler) RollbackTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderID := r.PathValue("tenderId")
	versionStr := r.PathValue("version")
	username := r.URL.Query().Get("username")

	updatedTender, err := h.Service.RollbackTender(ctx, tenderID, username, versionStr)
	if err != nil {
		h.writeError(w, err, "failed to rollback tender")
		return
	}

	h.writeJSON(w, updatedTender)
}
