package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Ossmium/avito/internal/models"
	"github.com/Ossmium/avito/internal/repository"
	"github.com/Ossmium/avito/internal/utils"
)

type TenderService struct {
	Repo      repository.TenderRepository
	Directory repository.EmployeeDirectory
}

// NewTenderService создаёт новый экземпляр TenderService.
func NewTenderService(repo repository.TenderRepository, directory repository.EmployeeDirectory) *TenderService {
	return &TenderService{Repo: repo, Directory: directory}
}

// allowedTenderTransition описывает машину состояний тендера.
// Из Closed переходов нет.
var allowedTenderTransition = map[models.TenderStatus][]models.TenderStatus{
	models.CreatedTender:   {models.PublishedTender, models.ClosedTender},
	models.PublishedTender: {models.ClosedTender},
	models.ClosedTender:    {},
}

// hasUpdatableFields проверяет, что в частичном обновлении есть хотя бы
// одно непустое поле. Пустая строка считается отсутствующим полем.
func hasUpdatableFields(updateFields map[string]interface{}, keys ...string) bool {
	for _, key := range keys {
		if value, ok := updateFields[key].(string); ok && value != "" {
			return true
		}
	}
	return false
}

// FetchTenders получает список тендеров, видимых пользователю.
func (s *TenderService) FetchTenders(ctx context.Context, username string, limit, offset int, serviceTypes []string) ([]models.Tender, error) {
	for _, serviceType := range serviceTypes {
		if !models.TenderServiceType(serviceType).Valid() {
			return nil, models.NewInvalidStateError(fmt.Sprintf("unsupported service type: %s", serviceType))
		}
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}
	return s.Repo.GetTenders(ctx, username, limit, offset, serviceTypes)
}

// CreateTender создает новый тендер.
func (s *TenderService) CreateTender(ctx context.Context, tenderReq models.TenderRequest) (*models.Tender, error) {
	if tenderReq.Name == "" || tenderReq.Description == "" || tenderReq.OrganizationID == "" || tenderReq.CreatorUsername == "" {
		return nil, models.NewInvalidStateError("missing required fields")
	}

	if !tenderReq.ServiceType.Valid() {
		return nil, models.NewInvalidStateError("invalid service type")
	}

	if _, err := s.Directory.FindByUsername(ctx, tenderReq.CreatorUsername); err != nil {
		return nil, err
	}

	isResponsible, err := s.Directory.IsResponsibleFor(ctx, tenderReq.CreatorUsername, tenderReq.OrganizationID)
	if err != nil {
		return nil, models.NewInternalError("internal server error")
	}
	if !isResponsible {
		return nil, models.NewAuthorizationError("you are not authorized to create tenders for this organization")
	}

	return s.Repo.CreateTender(ctx, tenderReq)
}

// GetUserTender получает список тендеров, созданных пользователем.
func (s *TenderService) GetUserTender(ctx context.Context, limitStr, offsetStr, username string) ([]models.Tender, error) {
	if username == "" {
		return nil, models.NewInvalidStateError("missing required query parameter: username")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewInvalidStateError(err.Error())
	}
	return s.Repo.GetUserTender(ctx, limit, offset, username)
}

// GetTenderStatus получает статус тендера.
func (s *TenderService) GetTenderStatus(ctx context.Context, tenderID, username string) (models.TenderStatus, error) {
	if username == "" || tenderID == "" {
		return "", models.NewInvalidStateError("missing required query parameter: tenderId or username")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return "", err
	}
	return s.Repo.GetTenderStatus(ctx, tenderID, username)
}

// UpdateTenderStatus меняет статус тендера. Повторная установка текущего
// статуса - идемпотентная операция без новой версии в истории.
func (s *TenderService) UpdateTenderStatus(ctx context.Context, tenderID, status, username string) (*models.Tender, error) {
	if status == "" || username == "" {
		return nil, models.NewInvalidStateError("missing required query parameters: status or username")
	}

	newStatus := models.TenderStatus(status)
	if !newStatus.Valid() {
		return nil, models.NewInvalidStateError("invalid tender status")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	if err := s.checkModifyPermission(ctx, username, tenderID); err != nil {
		return nil, err
	}

	currentTender, err := s.Repo.GetTenderByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}

	if currentTender.Status == newStatus {
		return currentTender, nil
	}

	if !utils.ContainsTender(allowedTenderTransition[currentTender.Status], newStatus) {
		return nil, models.NewInvalidStateError("invalid tender status transition")
	}
	return s.Repo.UpdateTenderStatus(ctx, tenderID, newStatus, currentTender.Version)
}

// EditTender меняет поля тендера. Обновление без непустых полей -
// идемпотентная операция без новой версии в истории.
func (s *TenderService) EditTender(ctx context.Context, tenderID, username string, updateFields map[string]interface{}) (*models.Tender, error) {
	if username == "" || tenderID == "" {
		return nil, models.NewInvalidStateError("missing required query parameter: tenderId or username")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	if err := s.checkModifyPermission(ctx, username, tenderID); err != nil {
		return nil, err
	}

	currentTender, err := s.Repo.GetTenderByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}

	if !hasUpdatableFields(updateFields, "name", "description", "serviceType") {
		return currentTender, nil
	}
	return s.Repo.EditTender(ctx, tenderID, currentTender.Version, updateFields)
}

// RollbackTender откатывает тендер на указанную версию.
func (s *TenderService) RollbackTender(ctx context.Context, tenderID, username, versionStr string) (*models.Tender, error) {
	if username == "" || tenderID == "" || versionStr == "" {
		return nil, models.NewInvalidStateError("missing required query parameter: tenderId or username or version")
	}

	version, err := strconv.Atoi(versionStr)
	if err != nil || version < 1 {
		return nil, models.NewInvalidStateError("invalid version number")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	if err := s.checkModifyPermission(ctx, username, tenderID); err != nil {
		return nil, err
	}

	return s.Repo.RollbackTender(ctx, tenderID, int32(version))
}

// checkModifyPermission проверяет право пользователя менять тендер.
func (s *TenderService) checkModifyPermission(ctx context.Context, username, tenderID string) error {
	isAuthorized, err := s.Repo.CanModifyTender(ctx, username, tenderID)
	if err != nil {
		return models.NewInternalError("internal server error")
	}
	if !isAuthorized {
		return models.NewAuthorizationError("you are not authorized to edit this tender")
	}
	return nil
}
