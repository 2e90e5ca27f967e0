package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/Ossmium/avito/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Полный сценарий: тендер создаётся и публикуется, организация-подрядчик
// подаёт и публикует предложение, после кворума одобрений тендер закрывается,
// а предложение остаётся опубликованным.
func TestProcurementLifecycle(t *testing.T) {
	dir := newFakeDirectory()
	tenderRepo := newFakeTenderRepo(dir)
	bidRepo := newFakeBidRepo(dir, tenderRepo)

	tenderService := NewTenderService(tenderRepo, dir)
	bidService := NewBidService(bidRepo, tenderRepo, dir)
	decisionService := NewDecisionService(bidRepo, tenderRepo, dir)
	ctx := context.Background()

	ownerOrg := uuid.New().String()
	contractorOrg := uuid.New().String()

	dir.addEmployee("owner")
	dir.addResponsible("owner", ownerOrg)

	contractor := dir.addEmployee("contractor0")
	dir.addResponsible("contractor0", contractorOrg)
	for i := 1; i < 5; i++ {
		username := fmt.Sprintf("contractor%d", i)
		dir.addEmployee(username)
		dir.addResponsible(username, contractorOrg)
	}

	tender, err := tenderService.CreateTender(ctx, models.TenderRequest{
		Name:            "Factory equipment",
		Description:     "Manufacture of factory equipment",
		ServiceType:     models.Manufacture,
		OrganizationID:  ownerOrg,
		CreatorUsername: "owner",
	})
	require.NoError(t, err)
	require.Equal(t, int32(1), tender.Version)

	tender, err = tenderService.UpdateTenderStatus(ctx, tender.ID, "Published", "owner")
	require.NoError(t, err)
	require.Equal(t, models.PublishedTender, tender.Status)

	bid, err := bidService.CreateBid(ctx, models.BidRequest{
		Name:        "Equipment offer",
		Description: "Full production line",
		TenderID:    tender.ID,
		AuthorType:  models.Organization,
		AuthorID:    contractor.ID,
	})
	require.NoError(t, err)

	bid, err = bidService.UpdateBidStatus(ctx, bid.ID, "Published", "contractor0")
	require.NoError(t, err)
	require.Equal(t, models.PublishedBid, bid.Status)

	// Кворум: три одобрения из пяти ответственных.
	for i := 0; i < 3; i++ {
		bid, err = decisionService.SubmitBidDecision(ctx, bid.ID, "Approved", fmt.Sprintf("contractor%d", i))
		require.NoError(t, err)
	}

	tender, err = tenderRepo.GetTenderByID(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClosedTender, tender.Status)
	assert.Equal(t, models.PublishedBid, bid.Status)

	// Закрытие по кворуму - обычная смена версии с новым снимком.
	assert.Equal(t, int32(3), tender.Version)
	assert.Len(t, tenderRepo.versions[tender.ID], 3)

	_, err = decisionService.SubmitBidDecision(ctx, bid.ID, "Approved", "contractor3")
	require.Error(t, err)
	errResp, ok := err.(*models.ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, 400, errResp.StatusCode)
}
