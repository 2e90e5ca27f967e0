package services

import (
	"context"
	"time"

	"github.com/Ossmium/avito/internal/models"

	"github.com/google/uuid"
)

// fakeDirectory - справочник пользователей и организаций в памяти.
type fakeDirectory struct {
	employees  map[string]models.Employee // username -> employee
	orgMembers map[string][]string        // organization id -> usernames
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		employees:  make(map[string]models.Employee),
		orgMembers: make(map[string][]string),
	}
}

func (d *fakeDirectory) addEmployee(username string) models.Employee {
	employee := models.Employee{
		ID:        uuid.New().String(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	d.employees[username] = employee
	return employee
}

func (d *fakeDirectory) addResponsible(username, organizationID string) {
	d.orgMembers[organizationID] = append(d.orgMembers[organizationID], username)
}

func (d *fakeDirectory) FindByUsername(_ context.Context, username string) (*models.Employee, error) {
	employee, ok := d.employees[username]
	if !ok {
		return nil, models.NewAuthenticationError("user does not exist")
	}
	return &employee, nil
}

func (d *fakeDirectory) FindByID(_ context.Context, userID string) (*models.Employee, error) {
	for _, employee := range d.employees {
		if employee.ID == userID {
			return &employee, nil
		}
	}
	return nil, models.NewAuthenticationError("user does not exist")
}

func (d *fakeDirectory) IsResponsibleFor(_ context.Context, username, organizationID string) (bool, error) {
	for _, member := range d.orgMembers[organizationID] {
		if member == username {
			return true, nil
		}
	}
	return false, nil
}

func (d *fakeDirectory) OrganizationOf(_ context.Context, userID string) (string, error) {
	for organizationID, members := range d.orgMembers {
		for _, member := range members {
			if employee, ok := d.employees[member]; ok && employee.ID == userID {
				return organizationID, nil
			}
		}
	}
	return "", nil
}

// fakeTenderRepo - хранилище тендеров в памяти с той же семантикой
// версий и снимков, что и у базы данных.
type fakeTenderRepo struct {
	dir      *fakeDirectory
	tenders  map[string]*models.Tender
	versions map[string][]models.TenderVersion
}

func newFakeTenderRepo(dir *fakeDirectory) *fakeTenderRepo {
	return &fakeTenderRepo{
		dir:      dir,
		tenders:  make(map[string]*models.Tender),
		versions: make(map[string][]models.TenderVersion),
	}
}

func (r *fakeTenderRepo) snapshot(tender *models.Tender) {
	r.versions[tender.ID] = append(r.versions[tender.ID], models.TenderVersion{
		ID:              uuid.New().String(),
		TenderID:        tender.ID,
		Name:            tender.Name,
		Description:     tender.Description,
		Status:          tender.Status,
		ServiceType:     tender.ServiceType,
		OrganizationID:  tender.OrganizationID,
		Version:         tender.Version,
		CreatedAt:       tender.CreatedAt,
		CreatorUsername: tender.CreatorUsername,
	})
}

func (r *fakeTenderRepo) CreateTender(_ context.Context, tenderReq models.TenderRequest) (*models.Tender, error) {
	for _, existing := range r.tenders {
		if existing.Name == tenderReq.Name {
			return nil, models.NewConflictError("tender with this name already exists")
		}
	}
	tender := &models.Tender{
		ID:              uuid.New().String(),
		Name:            tenderReq.Name,
		Description:     tenderReq.Description,
		ServiceType:     tenderReq.ServiceType,
		Status:          models.CreatedTender,
		OrganizationID:  tenderReq.OrganizationID,
		Version:         1,
		CreatedAt:       time.Now().UTC(),
		CreatorUsername: tenderReq.CreatorUsername,
	}
	r.tenders[tender.ID] = tender
	r.snapshot(tender)
	return tender, nil
}

func (r *fakeTenderRepo) GetTenders(ctx context.Context, username string, limit, offset int, serviceTypes []string) ([]models.Tender, error) {
	var tenders []models.Tender
	for _, tender := range r.tenders {
		visible := tender.Status == models.PublishedTender
		if !visible {
			isResponsible, _ := r.dir.IsResponsibleFor(ctx, username, tender.OrganizationID)
			visible = isResponsible
		}
		if !visible {
			continue
		}
		if len(serviceTypes) > 0 && !contains(serviceTypes, string(tender.ServiceType)) {
			continue
		}
		tenders = append(tenders, *tender)
	}
	return tenders, nil
}

func (r *fakeTenderRepo) GetUserTender(_ context.Context, limit, offset int, username string) ([]models.Tender, error) {
	var tenders []models.Tender
	for _, tender := range r.tenders {
		if tender.CreatorUsername == username {
			tenders = append(tenders, *tender)
		}
	}
	return tenders, nil
}

func (r *fakeTenderRepo) GetTenderByID(_ context.Context, tenderID string) (*models.Tender, error) {
	tender, ok := r.tenders[tenderID]
	if !ok {
		return nil, models.NewNotFoundError("tender not found")
	}
	copied := *tender
	return &copied, nil
}

func (r *fakeTenderRepo) GetTenderStatus(ctx context.Context, tenderID, username string) (models.TenderStatus, error) {
	tender, ok := r.tenders[tenderID]
	if !ok {
		return "", models.NewNotFoundError("tender not found")
	}
	if tender.Status != models.PublishedTender {
		isResponsible, _ := r.dir.IsResponsibleFor(ctx, username, tender.OrganizationID)
		if !isResponsible {
			return "", models.NewNotFoundError("tender not found")
		}
	}
	return tender.Status, nil
}

func (r *fakeTenderRepo) CanModifyTender(ctx context.Context, username, tenderID string) (bool, error) {
	tender, ok := r.tenders[tenderID]
	if !ok {
		return false, nil
	}
	return r.dir.IsResponsibleFor(ctx, username, tender.OrganizationID)
}

func (r *fakeTenderRepo) UpdateTenderStatus(_ context.Context, tenderID string, status models.TenderStatus, expectedVersion int32) (*models.Tender, error) {
	tender, ok := r.tenders[tenderID]
	if !ok || tender.Version != expectedVersion {
		return nil, models.NewConflictError("tender was modified concurrently")
	}
	tender.Status = status
	tender.Version++
	r.snapshot(tender)
	copied := *tender
	return &copied, nil
}

func (r *fakeTenderRepo) EditTender(_ context.Context, tenderID string, expectedVersion int32, updateFields map[string]interface{}) (*models.Tender, error) {
	tender, ok := r.tenders[tenderID]
	if !ok || tender.Version != expectedVersion {
		return nil, models.NewConflictError("tender was modified concurrently")
	}
	if name, ok := updateFields["name"].(string); ok && name != "" {
		tender.Name = name
	}
	if description, ok := updateFields["description"].(string); ok && description != "" {
		tender.Description = description
	}
	if serviceType, ok := updateFields["serviceType"].(string); ok && serviceType != "" {
		tender.ServiceType = models.TenderServiceType(serviceType)
	}
	tender.Version++
	r.snapshot(tender)
	copied := *tender
	return &copied, nil
}

func (r *fakeTenderRepo) RollbackTender(_ context.Context, tenderID string, version int32) (*models.Tender, error) {
	tender, ok := r.tenders[tenderID]
	if !ok {
		return nil, models.NewNotFoundError("tender not found")
	}
	var target *models.TenderVersion
	for i := range r.versions[tenderID] {
		if r.versions[tenderID][i].Version == version {
			target = &r.versions[tenderID][i]
			break
		}
	}
	if target == nil {
		return nil, models.NewNotFoundError("tender version not found")
	}
	tender.Name = target.Name
	tender.Description = target.Description
	tender.ServiceType = target.ServiceType
	tender.Status = target.Status
	tender.Version++
	r.snapshot(tender)
	copied := *tender
	return &copied, nil
}

// fakeBidRepo - хранилище предложений в памяти.
type fakeBidRepo struct {
	dir         *fakeDirectory
	tenderRepo  *fakeTenderRepo
	bids        map[string]*models.Bid
	versions    map[string][]models.BidVersion
	responsible map[string]string // bid id -> organization id ("" когда нет)
	decisions   map[string][]models.BidDecision
	reviews     map[string][]models.BidReview
}

func newFakeBidRepo(dir *fakeDirectory, tenderRepo *fakeTenderRepo) *fakeBidRepo {
	return &fakeBidRepo{
		dir:         dir,
		tenderRepo:  tenderRepo,
		bids:        make(map[string]*models.Bid),
		versions:    make(map[string][]models.BidVersion),
		responsible: make(map[string]string),
		decisions:   make(map[string][]models.BidDecision),
		reviews:     make(map[string][]models.BidReview),
	}
}

func (r *fakeBidRepo) snapshot(bid *models.Bid) {
	r.versions[bid.ID] = append(r.versions[bid.ID], models.BidVersion{
		ID:          uuid.New().String(),
		BidID:       bid.ID,
		Name:        bid.Name,
		Description: bid.Description,
		Status:      bid.Status,
		TenderID:    bid.TenderID,
		AuthorType:  bid.AuthorType,
		AuthorID:    bid.AuthorID,
		Version:     bid.Version,
		CreatedAt:   bid.CreatedAt,
	})
}

func (r *fakeBidRepo) CreateBid(_ context.Context, bidReq models.BidRequest, responsibleOrgID string) (*models.Bid, error) {
	for _, existing := range r.bids {
		if existing.Name == bidReq.Name && existing.Description == bidReq.Description &&
			existing.AuthorType == bidReq.AuthorType && existing.AuthorID == bidReq.AuthorID {
			return nil, models.NewConflictError("bid was already created for this tender")
		}
	}
	bid := &models.Bid{
		ID:          uuid.New().String(),
		Name:        bidReq.Name,
		Description: bidReq.Description,
		Status:      models.CreatedBid,
		TenderID:    bidReq.TenderID,
		AuthorType:  bidReq.AuthorType,
		AuthorID:    bidReq.AuthorID,
		Version:     1,
		CreatedAt:   time.Now().UTC(),
	}
	r.bids[bid.ID] = bid
	r.responsible[bid.ID] = responsibleOrgID
	r.snapshot(bid)
	return bid, nil
}

func (r *fakeBidRepo) GetUserBid(ctx context.Context, limit, offset int, username string) ([]models.Bid, error) {
	employee, err := r.dir.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	var bids []models.Bid
	for _, bid := range r.bids {
		if bid.AuthorID == employee.ID {
			bids = append(bids, *bid)
		}
	}
	return bids, nil
}

func (r *fakeBidRepo) canView(ctx context.Context, username string, bid *models.Bid) bool {
	if bid.AuthorType == models.User {
		if employee, ok := r.dir.employees[username]; ok && employee.ID == bid.AuthorID {
			return true
		}
	}
	if organizationID := r.responsible[bid.ID]; organizationID != "" {
		isResponsible, _ := r.dir.IsResponsibleFor(ctx, username, organizationID)
		return isResponsible
	}
	return false
}

func (r *fakeBidRepo) GetTenderBid(ctx context.Context, tenderID, username string, limit, offset int) ([]models.Bid, error) {
	var bids []models.Bid
	for _, bid := range r.bids {
		if bid.TenderID != tenderID {
			continue
		}
		if bid.Status == models.PublishedBid || r.canView(ctx, username, bid) {
			bids = append(bids, *bid)
		}
	}
	return bids, nil
}

func (r *fakeBidRepo) GetBidByID(_ context.Context, bidID string) (*models.Bid, error) {
	bid, ok := r.bids[bidID]
	if !ok {
		return nil, models.NewNotFoundError("bid not found")
	}
	copied := *bid
	return &copied, nil
}

func (r *fakeBidRepo) GetBidStatus(ctx context.Context, bidID, username string) (models.BidStatus, error) {
	bid, ok := r.bids[bidID]
	if !ok || !r.canView(ctx, username, bid) {
		return "", models.NewNotFoundError("bid not found")
	}
	return bid.Status, nil
}

func (r *fakeBidRepo) CanModifyBid(ctx context.Context, username, bidID string) (bool, error) {
	bid, ok := r.bids[bidID]
	if !ok {
		return false, nil
	}
	return r.canView(ctx, username, bid), nil
}

func (r *fakeBidRepo) CanReviewBid(ctx context.Context, username, bidID string) (bool, error) {
	bid, ok := r.bids[bidID]
	if !ok || bid.Status != models.PublishedBid {
		return false, nil
	}
	tender, ok := r.tenderRepo.tenders[bid.TenderID]
	if !ok {
		return false, nil
	}
	return r.dir.IsResponsibleFor(ctx, username, tender.OrganizationID)
}

func (r *fakeBidRepo) UpdateBidStatus(_ context.Context, bidID string, status models.BidStatus, expectedVersion int32) (*models.Bid, error) {
	bid, ok := r.bids[bidID]
	if !ok || bid.Version != expectedVersion {
		return nil, models.NewConflictError("bid was modified concurrently")
	}
	bid.Status = status
	bid.Version++
	r.snapshot(bid)
	copied := *bid
	return &copied, nil
}

func (r *fakeBidRepo) EditBid(_ context.Context, bidID string, expectedVersion int32, updateFields map[string]interface{}) (*models.Bid, error) {
	bid, ok := r.bids[bidID]
	if !ok || bid.Version != expectedVersion {
		return nil, models.NewConflictError("bid was modified concurrently")
	}
	if name, ok := updateFields["name"].(string); ok && name != "" {
		bid.Name = name
	}
	if description, ok := updateFields["description"].(string); ok && description != "" {
		bid.Description = description
	}
	bid.Version++
	r.snapshot(bid)
	copied := *bid
	return &copied, nil
}

func (r *fakeBidRepo) RollbackBid(_ context.Context, bidID string, version int32) (*models.Bid, error) {
	bid, ok := r.bids[bidID]
	if !ok {
		return nil, models.NewNotFoundError("bid not found")
	}
	var target *models.BidVersion
	for i := range r.versions[bidID] {
		if r.versions[bidID][i].Version == version {
			target = &r.versions[bidID][i]
			break
		}
	}
	if target == nil {
		return nil, models.NewNotFoundError("bid version not found")
	}
	bid.Name = target.Name
	bid.Description = target.Description
	bid.Status = target.Status
	bid.Version++
	r.snapshot(bid)
	copied := *bid
	return &copied, nil
}

func (r *fakeBidRepo) SubmitBidFeedback(_ context.Context, review models.BidReview) error {
	r.reviews[review.BidID] = append(r.reviews[review.BidID], review)
	return nil
}

func (r *fakeBidRepo) GetBidReviews(ctx context.Context, tenderID, authorUsername string, limit, offset int) ([]models.BidReview, error) {
	employee, err := r.dir.FindByUsername(ctx, authorUsername)
	if err != nil {
		return nil, err
	}
	var reviews []models.BidReview
	for bidID, bidReviews := range r.reviews {
		bid, ok := r.bids[bidID]
		if !ok || bid.TenderID != tenderID || bid.AuthorID != employee.ID {
			continue
		}
		reviews = append(reviews, bidReviews...)
	}
	return reviews, nil
}

func (r *fakeBidRepo) InsertBidDecision(_ context.Context, decision models.BidDecision) error {
	r.decisions[decision.BidID] = append(r.decisions[decision.BidID], decision)
	return nil
}

func (r *fakeBidRepo) GetBidDecisions(_ context.Context, bidID string) ([]models.BidDecision, error) {
	return r.decisions[bidID], nil
}

func (r *fakeBidRepo) CountBidResponders(_ context.Context, bidID string) (int, error) {
	organizationID := r.responsible[bidID]
	if organizationID == "" {
		return 0, nil
	}
	return len(r.dir.orgMembers[organizationID]), nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
