package services

import (
	"context"

	"github.com/Ossmium/avito/internal/models"
	"github.com/Ossmium/avito/internal/repository"

	"github.com/google/uuid"
)

// quorumLimit ограничивает кворум сверху, чтобы большим комитетам
// не требовалось единогласие.
const quorumLimit = 3

type DecisionService struct {
	BidRepo    repository.BidRepository
	TenderRepo repository.TenderRepository
	Directory  repository.EmployeeDirectory
}

// NewDecisionService создает новый экземпляр DecisionService.
func NewDecisionService(bidRepo repository.BidRepository, tenderRepo repository.TenderRepository, directory repository.EmployeeDirectory) *DecisionService {
	return &DecisionService{BidRepo: bidRepo, TenderRepo: tenderRepo, Directory: directory}
}

// QuorumThreshold возвращает число решений, необходимое для закрытия
// тендера: min(3, max(respondersCount, 1)).
func QuorumThreshold(respondersCount int) int {
	if respondersCount < 1 {
		respondersCount = 1
	}
	if respondersCount > quorumLimit {
		return quorumLimit
	}
	return respondersCount
}

// SubmitBidDecision записывает голос по предложению.
// Rejected немедленно отменяет предложение, одного голоса достаточно.
// Approved закрывает родительский тендер после набора кворума, статус
// самого предложения при этом не меняется.
func (s *DecisionService) SubmitBidDecision(ctx context.Context, bidID, decision, username string) (*models.Bid, error) {
	if decision == "" || username == "" || bidID == "" {
		return nil, models.NewInvalidStateError("decision, username and bidId are required")
	}

	decisionType := models.BidDecisionType(decision)
	if !decisionType.Valid() {
		return nil, models.NewInvalidStateError("invalid decision, must be either 'Approved' or 'Rejected'")
	}

	if _, err := s.Directory.FindByUsername(ctx, username); err != nil {
		return nil, err
	}

	bid, err := s.BidRepo.GetBidByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.Status != models.PublishedBid {
		return nil, models.NewInvalidStateError("bid is not published")
	}

	isAuthorized, err := s.BidRepo.CanModifyBid(ctx, username, bidID)
	if err != nil {
		return nil, models.NewInternalError("internal server error")
	}
	if !isAuthorized {
		return nil, models.NewAuthorizationError("you are not authorized to decide on this bid")
	}

	tender, err := s.TenderRepo.GetTenderByID(ctx, bid.TenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status == models.ClosedTender {
		return nil, models.NewInvalidStateError("tender already closed")
	}

	respondersCount, err := s.BidRepo.CountBidResponders(ctx, bidID)
	if err != nil {
		return nil, models.NewInternalError("internal server error")
	}

	// Каждый голос записывается, в том числе поданный после того,
	// как решение фактически принято.
	newDecision := models.BidDecision{
		ID:       uuid.New().String(),
		BidID:    bidID,
		Decision: decisionType,
		Username: username,
	}
	if err := s.BidRepo.InsertBidDecision(ctx, newDecision); err != nil {
		return nil, err
	}

	if decisionType == models.RejectedBid {
		return s.BidRepo.UpdateBidStatus(ctx, bidID, models.CanceledBid, bid.Version)
	}

	decisions, err := s.BidRepo.GetBidDecisions(ctx, bidID)
	if err != nil {
		return nil, err
	}

	// Поздний Approved не отменяет более раннее вето.
	for _, recorded := range decisions {
		if recorded.Decision == models.RejectedBid {
			return bid, nil
		}
	}

	if len(decisions) >= QuorumThreshold(respondersCount) {
		if _, err := s.TenderRepo.UpdateTenderStatus(ctx, tender.ID, models.ClosedTender, tender.Version); err != nil {
			return nil, err
		}
	}
	return bid, nil
}
