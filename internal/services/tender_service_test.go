package services

import (
	"strings"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenderService_Lifecycle(t *testing.T) {
	f := newFixture(t)

	tender, err := f.tenders.CreateTender(f.ctx, f.manager, models.TenderRequest{Title: ptr("Bridge"), Budget: ptr(1000.0)})
	require.NoError(t, err)
	assert.Equal(t, models.DraftTender, tender.Status)
	assert.True(t, strings.HasPrefix(tender.TenderNumber, "TND-"))

	steps := []struct {
		do   func() (*models.Tender, error)
		want models.TenderStatus
	}{
		{func() (*models.Tender, error) { return f.tenders.PublishTender(f.ctx, f.manager, tender.ID) }, models.PublishedTender},
		{func() (*models.Tender, error) { return f.tenders.OpenBidding(f.ctx, f.manager, tender.ID) }, models.BiddingTender},
		{func() (*models.Tender, error) { return f.tenders.CloseTender(f.ctx, f.manager, tender.ID) }, models.ClosedTender},
		{func() (*models.Tender, error) { return f.tenders.AwardTender(f.ctx, f.admin, tender.ID) }, models.AwardedTender},
	}
	for _, step := range steps {
		got, err := step.do()
		require.NoError(t, err)
		assert.Equal(t, step.want, got.Status)
	}

	_, err = f.tenders.CancelTender(f.ctx, f.manager, tender.ID)
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))
	assert.Contains(t, f.notifier.kinds(), notify.TenderPublished)
}

func TestTenderService_InvalidTransitions(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		from models.TenderStatus
		to   models.TenderStatus
	}{
		{models.PublishedTender, models.PublishedTender},
		{models.DraftTender, models.BiddingTender},
		{models.DraftTender, models.ClosedTender},
		{models.PublishedTender, models.ClosedTender},
		{models.BiddingTender, models.AwardedTender},
		{models.AwardedTender, models.CancelledTender},
		{models.CancelledTender, models.PublishedTender},
	}
	for _, tt := range tests {
		tender := f.addTender(tt.from, nil)
		_, err := f.tenders.UpdateTenderStatus(f.ctx, f.manager, tender.ID, tt.to)
		assert.True(t, models.IsKind(err, models.KindInvalidTransition), "%s -> %s", tt.from, tt.to)
	}

	_, err := f.tenders.PublishTender(f.ctx, f.employee, f.addTender(models.DraftTender, nil).ID)
	assert.True(t, models.IsKind(err, models.KindUnauthorized))

	_, err = f.tenders.PublishTender(f.ctx, f.manager, "missing")
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestTenderService_CancelFromAnyOpenStatus(t *testing.T) {
	f := newFixture(t)
	for _, status := range []models.TenderStatus{models.DraftTender, models.PublishedTender, models.BiddingTender, models.ClosedTender} {
		got, err := f.tenders.CancelTender(f.ctx, f.manager, f.addTender(status, nil).ID)
		require.NoError(t, err)
		assert.Equal(t, models.CancelledTender, got.Status)
	}
}

func TestTenderService_DatesFixedAfterDraft(t *testing.T) {
	f := newFixture(t)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tender := f.addTender(models.DraftTender, &end)
	later := end.Add(24 * time.Hour)
	got, err := f.tenders.EditTender(f.ctx, f.manager, tender.ID, models.TenderRequest{EndDate: &later})
	require.NoError(t, err)
	assert.True(t, got.EndDate.Equal(later))

	published := f.addTender(models.PublishedTender, &end)
	_, err = f.tenders.EditTender(f.ctx, f.manager, published.ID, models.TenderRequest{EndDate: &later})
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))

	start := end.Add(-48 * time.Hour)
	_, err = f.tenders.EditTender(f.ctx, f.manager, published.ID, models.TenderRequest{StartDate: &start})
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))

	same := end
	got, err = f.tenders.EditTender(f.ctx, f.manager, published.ID, models.TenderRequest{EndDate: &same, Title: ptr("Bridge v2")})
	require.NoError(t, err)
	assert.Equal(t, "Bridge v2", got.Title)
	assert.Equal(t, models.PublishedTender, got.Status)

	_, err = f.tenders.EditTender(f.ctx, f.manager, f.addTender(models.AwardedTender, nil).ID, models.TenderRequest{Title: ptr("x")})
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))
}

func TestTenderService_DeleteGuard(t *testing.T) {
	f := newFixture(t)

	empty := f.addTender(models.DraftTender, nil)
	require.NoError(t, f.tenders.DeleteTender(f.ctx, f.manager, empty.ID))
	_, err := f.tenders.GetTender(f.ctx, empty.ID)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	withBids := f.addTender(models.BiddingTender, nil)
	f.addBid(withBids, f.addVendor(f.supplier, models.ActiveVendor))

	details, err := f.tenders.GetTender(f.ctx, withBids.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, details.BidCount)

	err = f.tenders.DeleteTender(f.ctx, f.manager, withBids.ID)
	assert.True(t, models.IsKind(err, models.KindConflict))

	err = f.tenders.DeleteTender(f.ctx, f.employee, empty.ID)
	assert.True(t, models.IsKind(err, models.KindUnauthorized))
}

func TestTenderService_FetchTenders(t *testing.T) {
	f := newFixture(t)
	f.addTender(models.DraftTender, nil)
	f.addTender(models.BiddingTender, nil)
	f.addTender(models.BiddingTender, nil)

	result, err := f.tenders.FetchTenders(f.ctx, models.TenderFilter{
		Status: []models.TenderStatus{models.BiddingTender},
		Page:   models.Page{Limit: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Items, 1)

	_, err = f.tenders.FetchTenders(f.ctx, models.TenderFilter{Status: []models.TenderStatus{"open"}})
	assert.True(t, models.IsKind(err, models.KindValidationFailed))
}
