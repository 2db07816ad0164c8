package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	// CreateBid возвращает Conflict, если у поставщика уже есть предложение по тендеру.
	CreateBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, bidID string) (*models.Bid, error)
	// UpdateBid сохраняет предложение, только если его текущий статус равен expect.
	UpdateBid(ctx context.Context, bid *models.Bid, expect models.BidStatus) error
	// DeleteBid удаляет предложение, только если его текущий статус равен expect.
	DeleteBid(ctx context.Context, bidID string, expect models.BidStatus) error
	ListBids(ctx context.Context, filter models.BidFilter) (*models.ListResult[models.Bid], error)
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `id, tender_id, vendor_id, proposal, bid_amount, validity_days, status, review_comments, submitted_at, reviewed_at, created_at, updated_at`

// CreateBid создает новое предложение.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, bid *models.Bid) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO bids (`+bidColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		bid.ID,
		bid.TenderID,
		bid.VendorID,
		bid.Proposal,
		bid.BidAmount,
		bid.ValidityDays,
		bid.Status,
		bid.ReviewComments,
		bid.SubmittedAt,
		bid.ReviewedAt,
		bid.CreatedAt,
		bid.UpdatedAt)
	if isUniqueViolation(err, "bids_tender_vendor_key") {
		return models.Conflict("vendor %s has already submitted a bid for tender %s", bid.VendorID, bid.TenderID)
	}
	if isForeignKeyViolation(err) {
		return models.NotFound("tender %s or vendor %s not found", bid.TenderID, bid.VendorID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetBid возвращает предложение по ID.
func (r *PostgresBidRepository) GetBid(ctx context.Context, bidID string) (*models.Bid, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, bidID)
	bid, err := scanBid(row)
	if err != nil {
		return nil, notFound(err, "bid", bidID)
	}
	return bid, nil
}

// UpdateBid меняет предложение.
func (r *PostgresBidRepository) UpdateBid(ctx context.Context, bid *models.Bid, expect models.BidStatus) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE bids
		SET proposal = $3, bid_amount = $4, validity_days = $5, status = $6, review_comments = $7,
		    submitted_at = $8, reviewed_at = $9, updated_at = $10
		WHERE id = $1 AND status = $2`,
		bid.ID,
		expect,
		bid.Proposal,
		bid.BidAmount,
		bid.ValidityDays,
		bid.Status,
		bid.ReviewComments,
		bid.SubmittedAt,
		bid.ReviewedAt,
		bid.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// DeleteBid удаляет предложение.
func (r *PostgresBidRepository) DeleteBid(ctx context.Context, bidID string, expect models.BidStatus) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM bids WHERE id = $1 AND status = $2`, bidID, expect)
	if err != nil {
		return fmt.Errorf("failed to delete bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// ListBids возвращает список предложений.
func (r *PostgresBidRepository) ListBids(ctx context.Context, filter models.BidFilter) (*models.ListResult[models.Bid], error) {
	var b whereBuilder
	if len(filter.Status) > 0 {
		b.add("status = ANY($%d)", pq.Array(toStrings(filter.Status)))
	}
	if filter.TenderID != "" {
		b.add("tender_id = $%d", filter.TenderID)
	}
	if filter.VendorID != "" {
		b.add("vendor_id = $%d", filter.VendorID)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM bids`+b.where(), b.args...).Scan(&total); err != nil {
		return nil, err
	}

	limit, args := b.page(filter.Page)
	rows, err := r.DB.Query(ctx, `SELECT `+bidColumns+` FROM bids`+b.where()+` ORDER BY created_at DESC`+limit, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &models.ListResult[models.Bid]{Total: total}
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *bid)
	}
	return result, rows.Err()
}

func scanBid(row rowScanner) (*models.Bid, error) {
	var bid models.Bid
	err := row.Scan(
		&bid.ID,
		&bid.TenderID,
		&bid.VendorID,
		&bid.Proposal,
		&bid.BidAmount,
		&bid.ValidityDays,
		&bid.Status,
		&bid.ReviewComments,
		&bid.SubmittedAt,
		&bid.ReviewedAt,
		&bid.CreatedAt,
		&bid.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &bid, nil
}
