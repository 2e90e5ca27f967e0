package services

import (
	"context"
	"strconv"
	"time"

	"github.com/Ossmium/avito/internal/models"
	"github.com/Ossmium/avito/internal/repository"
	"github.com/Ossmium/avito/internal/utils"

	"github.com/google/uuid"
)

type BidService struct {
	Repo       repository.BidRepository
	TenderRepo repository.TenderRepository
	Directory  repository.EmployeeDirectory
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(repo repository.BidRepository, tenderRepo repository.TenderRepository, directory repository.EmployeeDirectory) *BidService {
	return &BidService{Repo: repo, TenderRepo: tenderRepo, Directory: directory}
}

// allowedBidTransition описывает машину состояний предложения.
// Из Canceled переходов нет.
var allowedBidTransition = map[models.BidStatus][]models.BidStatus{
	models.CreatedBid:   {models.PublishedBid, models.CanceledBid},
	models.PublishedBid: {models.CanceledBid},
	models.CanceledBid:  {},
}

// CreateBid создает новое предложение. Предложение от имени организации-владельца
// тендера для её же тендера запрещено.
func (s *BidService) CreateBid(ctx context.Context, bidReq models.BidRequest) (*models.Bid, error) {
	if bidReq.Name == "" || bidReq.Description == "" || bidReq.TenderID == "" || bidReq.AuthorType == "" || bidReq.AuthorID == "" {
		return nil, models.NewInvalidStateError("missing required fields")
	}

	if !bidReq.AuthorType.Valid() {
		return nil, models.NewInvalidStateError("invalid author type. Must be 'Organization' or 'User'")
	}

	if _, err := s.Directory.FindByID(ctx, bidReq.AuthorID); err != nil {
		return nil, err
	}

	tender, err := s.TenderRepo.GetTenderByID(ctx, bidReq.TenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != models.PublishedTender {
		return nil, models.NewInvalidStateError("tender is not published")
	}

	var responsibleOrgID string
	if bidReq.AuthorType == models.Organization {
		organizationID, err := s.Directory.OrganizationOf(ctx, bidReq.AuthorID)
		if err != nil {
			return nil, models.NewInternalError("internal server error")
		}
		if organizationID == "" {
			return nil, models.NewAuthorizationError("author is not in any organization")
		}
		if organizationID == tender.OrganizationID {
			return nil, models.NewAuthorizationError("cannot create a bid on behalf of the tender's own organization")
		}
		responsibleOrgID = organizationID
	}

	return s.Repo.CreateBid(ctx, bidReq, responsibleOrgID)
}

// GetUserBid получает список предложений пользователя.
func (s *BidService) GetUserBid(ctx context.Context, limitStr, offsetStr, username string) ([]models.Bid, error) {
	if username == "" {
		return nil, models.NewInvalidStateError("missing required query parameter: username")
	}

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewInvalidStateError(err.Error())
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}
	return s.Repo.GetUserBid(ctx, limit, offset, username)
}

// GetTenderBid получает список предложений для тендера.
// Опубликованные предложения видны всем аутентифицированным пользователям.
func (s *BidService) GetTenderBid(ctx context.Context, username, tenderID, limitStr, offsetStr string) ([]models.Bid, error) {
	if tenderID == "" || username == "" {
		return nil, models.NewInvalidStateError("missing required query parameters: username or tenderId")
	}

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewInvalidStateError(err.Error())
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	tender, err := s.TenderRepo.GetTenderByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status == models.CreatedTender {
		return nil, models.NewNotFoundError("tender not found")
	}
	return s.Repo.GetTenderBid(ctx, tenderID, username, limit, offset)
}

// GetBidStatus получает статус предложения.
func (s *BidService) GetBidStatus(ctx context.Context, bidID, username string) (models.BidStatus, error) {
	if username == "" || bidID == "" {
		return "", models.NewInvalidStateError("missing required query parameter: bidId or username")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return "", err
	}
	return s.Repo.GetBidStatus(ctx, bidID, username)
}

// UpdateBidStatus меняет статус предложения. Повторная установка текущего
// статуса - идемпотентная операция без новой версии в истории.
func (s *BidService) UpdateBidStatus(ctx context.Context, bidID, status, username string) (*models.Bid, error) {
	if status == "" || username == "" {
		return nil, models.NewInvalidStateError("missing required query parameters: username or status")
	}

	newStatus := models.BidStatus(status)
	if !newStatus.Valid() {
		return nil, models.NewInvalidStateError("invalid bid status")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	if err := s.checkModifyPermission(ctx, username, bidID); err != nil {
		return nil, err
	}

	currentBid, err := s.Repo.GetBidByID(ctx, bidID)
	if err != nil {
		return nil, err
	}

	if currentBid.Status == newStatus {
		return currentBid, nil
	}

	if !utils.ContainsBid(allowedBidTransition[currentBid.Status], newStatus) {
		return nil, models.NewInvalidStateError("invalid bid status transition")
	}
	return s.Repo.UpdateBidStatus(ctx, bidID, newStatus, currentBid.Version)
}

// EditBid меняет поля предложения. Обновление без непустых полей -
// идемпотентная операция без новой версии в истории.
func (s *BidService) EditBid(ctx context.Context, bidID, username string, updateFields map[string]interface{}) (*models.Bid, error) {
	if username == "" || bidID == "" {
		return nil, models.NewInvalidStateError("missing required query parameter: bidId or username")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	if err := s.checkModifyPermission(ctx, username, bidID); err != nil {
		return nil, err
	}

	currentBid, err := s.Repo.GetBidByID(ctx, bidID)
	if err != nil {
		return nil, err
	}

	if !hasUpdatableFields(updateFields, "name", "description") {
		return currentBid, nil
	}
	return s.Repo.EditBid(ctx, bidID, currentBid.Version, updateFields)
}

// SubmitBidFeedback отправляет отзыв на предложение. Отзыв доступен только
// ответственным организации-владельца тендера и не меняет версию предложения.
func (s *BidService) SubmitBidFeedback(ctx context.Context, bidID, bidFeedback, username string) (*models.Bid, error) {
	if bidFeedback == "" || username == "" || bidID == "" {
		return nil, models.NewInvalidStateError("bidFeedback, username and bidId are required")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	canReview, err := s.Repo.CanReviewBid(ctx, username, bidID)
	if err != nil {
		return nil, models.NewInternalError("internal server error")
	}
	if !canReview {
		return nil, models.NewNotFoundError("bid not found")
	}

	review := models.BidReview{
		ID:          uuid.New().String(),
		BidID:       bidID,
		Description: bidFeedback,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.SubmitBidFeedback(ctx, review); err != nil {
		return nil, err
	}
	return s.Repo.GetBidByID(ctx, bidID)
}

// RollbackBid откатывает предложение на указанную версию.
func (s *BidService) RollbackBid(ctx context.Context, bidID, username, versionStr string) (*models.Bid, error) {
	if username == "" || bidID == "" || versionStr == "" {
		return nil, models.NewInvalidStateError("missing required query parameter: bidId or username or version")
	}

	version, err := strconv.Atoi(versionStr)
	if err != nil || version < 1 {
		return nil, models.NewInvalidStateError("invalid version number")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	if err := s.checkModifyPermission(ctx, username, bidID); err != nil {
		return nil, err
	}

	return s.Repo.RollbackBid(ctx, bidID, int32(version))
}

// GetBidReviews получает список отзывов на предложения автора по тендеру.
// Доступно только ответственным организации-владельца тендера.
func (s *BidService) GetBidReviews(ctx context.Context, tenderID, authorUsername, requesterUsername, limitStr, offsetStr string) ([]models.BidReview, error) {
	if tenderID == "" || authorUsername == "" || requesterUsername == "" {
		return nil, models.NewInvalidStateError("missing required query parameters: tenderId, authorUsername or requesterUsername")
	}

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewInvalidStateError(err.Error())
	}

	if _, err := s.Directory.FindByUsername(ctx, requesterUsername); err != nil {
		return nil, err
	}
	if _, err := s.Directory.FindByUsername(ctx, authorUsername); err != nil {
		return nil, err
	}

	tender, err := s.TenderRepo.GetTenderByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}

	isResponsible, err := s.Directory.IsResponsibleFor(ctx, requesterUsername, tender.OrganizationID)
	if err != nil {
		return nil, models.NewInternalError("internal server error")
	}
	if !isResponsible {
		return nil, models.NewAuthorizationError("you are not authorized to view bid reviews for this tender")
	}

	return s.Repo.GetBidReviews(ctx, tenderID, authorUsername, limit, offset)
}

// checkModifyPermission проверяет право пользователя менять предложение.
func (s *BidService) checkModifyPermission(ctx context.Context, username, bidID string) error {
	isAuthorized, err := s.Repo.CanModifyBid(ctx, username, bidID)
	if err != nil {
		return models.NewInternalError("internal server error")
	}
	if !isAuthorized {
		return models.NewAuthorizationError("you are not authorized to edit this bid")
	}
	return nil
}
