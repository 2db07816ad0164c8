package services

import (
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBidService_CreateRequiresBidding(t *testing.T) {
	f := newFixture(t)
	vendor := f.addVendor(f.supplier, models.ActiveVendor)

	for _, status := range []models.TenderStatus{
		models.DraftTender, models.PublishedTender, models.ClosedTender, models.AwardedTender, models.CancelledTender,
	} {
		tender := f.addTender(status, nil)
		_, err := f.bids.CreateBid(f.ctx, f.supplier, models.BidRequest{TenderID: tender.ID, VendorID: vendor.ID, Proposal: ptr("p")})
		assert.True(t, models.IsKind(err, models.KindInvalidTransition), "tender %s", status)
	}

	bid := f.addBid(f.addTender(models.BiddingTender, nil), vendor)
	assert.Equal(t, models.SubmittedBid, bid.Status)
	assert.NotNil(t, bid.SubmittedAt)
	assert.Contains(t, f.notifier.kinds(), notify.BidReceived)
}

func TestBidService_CreateConflicts(t *testing.T) {
	f := newFixture(t)
	tender := f.addTender(models.BiddingTender, nil)
	vendor := f.addVendor(f.supplier, models.ActiveVendor)
	f.addBid(tender, vendor)

	t.Run("duplicate pair", func(t *testing.T) {
		_, err := f.bids.CreateBid(f.ctx, f.supplier, models.BidRequest{TenderID: tender.ID, VendorID: vendor.ID, Proposal: ptr("again")})
		assert.True(t, models.IsKind(err, models.KindConflict))
	})

	t.Run("storage constraint backs the check", func(t *testing.T) {
		err := f.store.Bids().CreateBid(f.ctx, &models.Bid{ID: "other", TenderID: tender.ID, VendorID: vendor.ID})
		assert.True(t, models.IsKind(err, models.KindConflict))
	})

	t.Run("inactive vendor", func(t *testing.T) {
		for _, status := range []models.VendorStatus{models.InactiveVendor, models.BlacklistedVendor} {
			other := f.addVendor(f.supplier, status)
			_, err := f.bids.CreateBid(f.ctx, f.supplier, models.BidRequest{TenderID: tender.ID, VendorID: other.ID, Proposal: ptr("p")})
			assert.True(t, models.IsKind(err, models.KindConflict), "vendor %s", status)
		}
	})

	t.Run("not the vendor representative", func(t *testing.T) {
		other := f.addVendor(f.manager, models.ActiveVendor)
		_, err := f.bids.CreateBid(f.ctx, f.supplier, models.BidRequest{TenderID: tender.ID, VendorID: other.ID, Proposal: ptr("p")})
		assert.True(t, models.IsKind(err, models.KindUnauthorized))
	})

	t.Run("missing references", func(t *testing.T) {
		_, err := f.bids.CreateBid(f.ctx, f.supplier, models.BidRequest{TenderID: "missing", VendorID: vendor.ID, Proposal: ptr("p")})
		assert.True(t, models.IsKind(err, models.KindNotFound))
		_, err = f.bids.CreateBid(f.ctx, f.supplier, models.BidRequest{TenderID: tender.ID, VendorID: "missing", Proposal: ptr("p")})
		assert.True(t, models.IsKind(err, models.KindNotFound))
		_, err = f.bids.CreateBid(f.ctx, f.supplier, models.BidRequest{TenderID: tender.ID})
		assert.True(t, models.IsKind(err, models.KindValidationFailed))
	})
}

func TestBidService_Submit(t *testing.T) {
	f := newFixture(t)
	deadline := f.clock.Now().Add(time.Hour)
	tender := f.addTender(models.BiddingTender, &deadline)
	bid := f.addBid(tender, f.addVendor(f.supplier, models.ActiveVendor))

	_, err := f.bids.SubmitBid(f.ctx, f.admin, bid.ID)
	assert.True(t, models.IsKind(err, models.KindUnauthorized))

	got, err := f.bids.SubmitBid(f.ctx, f.supplier, bid.ID)
	require.NoError(t, err)
	assert.True(t, got.SubmittedAt.After(*bid.SubmittedAt))

	f.clock.now = deadline.Add(time.Minute)
	_, err = f.bids.SubmitBid(f.ctx, f.supplier, bid.ID)
	assert.True(t, models.IsKind(err, models.KindConflict))

	_, err = f.tenders.CloseTender(f.ctx, f.manager, tender.ID)
	require.NoError(t, err)
	_, err = f.bids.SubmitBid(f.ctx, f.supplier, bid.ID)
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))
}

func TestBidService_EditOnlyWhileSubmitted(t *testing.T) {
	f := newFixture(t)
	bid := f.addBid(f.addTender(models.BiddingTender, nil), f.addVendor(f.supplier, models.ActiveVendor))

	got, err := f.bids.EditBid(f.ctx, f.supplier, bid.ID, models.BidRequest{BidAmount: ptr(900.0), ValidityDays: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, 900.0, *got.BidAmount)

	_, err = f.bids.EditBid(f.ctx, f.employee, bid.ID, models.BidRequest{BidAmount: ptr(1.0)})
	assert.True(t, models.IsKind(err, models.KindUnauthorized))

	_, err = f.bids.EditBid(f.ctx, f.supplier, bid.ID, models.BidRequest{ValidityDays: ptr(0)})
	assert.True(t, models.IsKind(err, models.KindValidationFailed))

	_, err = f.bids.ReviewBid(f.ctx, f.manager, bid.ID, models.BidReview{Status: models.UnderReviewBid})
	require.NoError(t, err)

	_, err = f.bids.EditBid(f.ctx, f.supplier, bid.ID, models.BidRequest{BidAmount: ptr(800.0)})
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))
}

func TestBidService_Review(t *testing.T) {
	f := newFixture(t)
	bid := f.addBid(f.addTender(models.BiddingTender, nil), f.addVendor(f.supplier, models.ActiveVendor))

	_, err := f.bids.ReviewBid(f.ctx, f.supplier, bid.ID, models.BidReview{Status: models.ShortlistedBid})
	assert.True(t, models.IsKind(err, models.KindUnauthorized))

	_, err = f.bids.ReviewBid(f.ctx, f.manager, bid.ID, models.BidReview{Status: models.SubmittedBid})
	assert.True(t, models.IsKind(err, models.KindValidationFailed))

	got, err := f.bids.ReviewBid(f.ctx, f.manager, bid.ID, models.BidReview{Status: models.ShortlistedBid, Comments: "good price"})
	require.NoError(t, err)
	assert.Equal(t, models.ShortlistedBid, got.Status)
	assert.Equal(t, "good price", got.ReviewComments)
	assert.NotNil(t, got.ReviewedAt)

	_, err = f.bids.ReviewBid(f.ctx, f.manager, bid.ID, models.BidReview{Status: models.AwardedBid})
	require.NoError(t, err)

	_, err = f.bids.ReviewBid(f.ctx, f.manager, bid.ID, models.BidReview{Status: models.RejectedBid})
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))
}

func TestBidService_ReviewWithoutTerminalLock(t *testing.T) {
	f := newFixture(t)
	f.bids = NewBidService(f.store.Bids(), f.store.Tenders(), f.store.Vendors(), f.notifier, zerolog.Nop(), false)
	bid := f.addBid(f.addTender(models.BiddingTender, nil), f.addVendor(f.supplier, models.ActiveVendor))

	_, err := f.bids.ReviewBid(f.ctx, f.manager, bid.ID, models.BidReview{Status: models.RejectedBid})
	require.NoError(t, err)
	got, err := f.bids.ReviewBid(f.ctx, f.manager, bid.ID, models.BidReview{Status: models.AwardedBid})
	require.NoError(t, err)
	assert.Equal(t, models.AwardedBid, got.Status)
}

func TestBidService_Delete(t *testing.T) {
	f := newFixture(t)
	tender := f.addTender(models.BiddingTender, nil)
	vendor := f.addVendor(f.supplier, models.ActiveVendor)
	bid := f.addBid(tender, vendor)

	assert.True(t, models.IsKind(f.bids.DeleteBid(f.ctx, f.manager, bid.ID), models.KindUnauthorized))
	require.NoError(t, f.bids.DeleteBid(f.ctx, f.admin, bid.ID))
	_, err := f.bids.GetBid(f.ctx, bid.ID)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	reviewed := f.addBid(tender, vendor)
	_, err = f.bids.ReviewBid(f.ctx, f.manager, reviewed.ID, models.BidReview{Status: models.UnderReviewBid})
	require.NoError(t, err)
	assert.True(t, models.IsKind(f.bids.DeleteBid(f.ctx, f.supplier, reviewed.ID), models.KindInvalidTransition))
}

func TestVendorService(t *testing.T) {
	f := newFixture(t)

	vendor, err := f.vendors.CreateVendor(f.ctx, f.supplier, models.VendorRequest{
		CompanyName: ptr("Acme"),
		Email:       ptr("Sales@Acme.test"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActiveVendor, vendor.Status)
	assert.Equal(t, "sales@acme.test", vendor.Email)
	assert.Equal(t, f.supplier.ID, vendor.CreatedBy)

	_, err = f.vendors.CreateVendor(f.ctx, f.supplier, models.VendorRequest{CompanyName: ptr("Acme 2"), Email: ptr("sales@acme.test")})
	assert.True(t, models.IsKind(err, models.KindConflict))

	_, err = f.vendors.UpdateVendor(f.ctx, f.supplier, vendor.ID, models.VendorRequest{Status: ptr(models.BlacklistedVendor)})
	assert.True(t, models.IsKind(err, models.KindUnauthorized))

	updated, err := f.vendors.UpdateVendor(f.ctx, f.supplier, vendor.ID, models.VendorRequest{Phone: ptr("+1 555 0100")})
	require.NoError(t, err)
	assert.Equal(t, "+1 555 0100", updated.Phone)

	tender := f.addTender(models.BiddingTender, nil)
	bid := f.addBid(tender, vendor)
	_, err = f.bids.ReviewBid(f.ctx, f.manager, bid.ID, models.BidReview{Status: models.AwardedBid})
	require.NoError(t, err)
	f.addBid(f.addTender(models.BiddingTender, nil), vendor)

	perf, err := f.vendors.Performance(f.ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, perf.TotalBids)
	assert.Equal(t, 1, perf.ByStatus[models.AwardedBid])
	assert.InDelta(t, 0.5, perf.AwardRate, 0.0001)

	assert.True(t, models.IsKind(f.vendors.DeleteVendor(f.ctx, f.manager, vendor.ID), models.KindConflict))

	empty := f.addVendor(f.supplier, models.InactiveVendor)
	assert.True(t, models.IsKind(f.vendors.DeleteVendor(f.ctx, f.supplier, empty.ID), models.KindUnauthorized))
	require.NoError(t, f.vendors.DeleteVendor(f.ctx, f.manager, empty.ID))

	list, err := f.vendors.ListVendors(f.ctx, models.VendorFilter{CompanyName: "acme", Page: models.Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
}
