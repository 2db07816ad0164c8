package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// TenderRepository - интерфейс для работы с тендерами.
type TenderRepository interface {
	DependencyChecker
	CreateTender(ctx context.Context, tender *models.Tender) error
	GetTender(ctx context.Context, tenderID string) (*models.Tender, error)
	// UpdateTender сохраняет поля тендера, только если его статус все еще равен expect.
	UpdateTender(ctx context.Context, tender *models.Tender, expect models.TenderStatus) error
	// UpdateTenderStatus меняет статус, только если текущий статус равен from.
	UpdateTenderStatus(ctx context.Context, tenderID string, from, to models.TenderStatus) error
	DeleteTender(ctx context.Context, tenderID string) error
	ListTenders(ctx context.Context, filter models.TenderFilter) (*models.ListResult[models.Tender], error)
}

// PostgresTenderRepository - реализация TenderRepository для базы данных.
type PostgresTenderRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresTenderRepository создаёт новый экземпляр PostgresTenderRepository.
func NewPostgresTenderRepository(db *pgxpool.Pool) *PostgresTenderRepository {
	return &PostgresTenderRepository{DB: db}
}

const tenderColumns = `id, tender_number, title, description, budget, status, start_date, end_date, bid_opening_date, created_by, created_at, updated_at`

// CreateTender создает новый тендер.
func (r *PostgresTenderRepository) CreateTender(ctx context.Context, tender *models.Tender) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO tenders (`+tenderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		tender.ID,
		tender.TenderNumber,
		tender.Title,
		tender.Description,
		tender.Budget,
		tender.Status,
		tender.StartDate,
		tender.EndDate,
		tender.BidOpeningDate,
		tender.CreatedBy,
		tender.CreatedAt,
		tender.UpdatedAt)
	if isUniqueViolation(err, "tenders_tender_number_key") {
		return models.Conflict("tender number %s already exists", tender.TenderNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to insert tender: %w", err)
	}
	return nil
}

// GetTender возвращает тендер по ID.
func (r *PostgresTenderRepository) GetTender(ctx context.Context, tenderID string) (*models.Tender, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+tenderColumns+` FROM tenders WHERE id = $1`, tenderID)
	tender, err := scanTender(row)
	if err != nil {
		return nil, notFound(err, "tender", tenderID)
	}
	return tender, nil
}

// UpdateTender меняет описание тендера. Статус меняется только через UpdateTenderStatus.
func (r *PostgresTenderRepository) UpdateTender(ctx context.Context, tender *models.Tender, expect models.TenderStatus) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE tenders
		SET tender_number = $2, title = $3, description = $4, budget = $5, start_date = $6,
		    end_date = $7, bid_opening_date = $8, updated_at = $9
		WHERE id = $1 AND status = $10`,
		tender.ID,
		tender.TenderNumber,
		tender.Title,
		tender.Description,
		tender.Budget,
		tender.StartDate,
		tender.EndDate,
		tender.BidOpeningDate,
		tender.UpdatedAt,
		expect)
	if isUniqueViolation(err, "tenders_tender_number_key") {
		return models.Conflict("tender number %s already exists", tender.TenderNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to update tender: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// UpdateTenderStatus меняет статус тендера.
func (r *PostgresTenderRepository) UpdateTenderStatus(ctx context.Context, tenderID string, from, to models.TenderStatus) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE tenders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, tenderID, from, to)
	if err != nil {
		return fmt.Errorf("failed to update tender status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// DeleteTender удаляет тендер.
func (r *PostgresTenderRepository) DeleteTender(ctx context.Context, tenderID string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM tenders WHERE id = $1`, tenderID)
	if isForeignKeyViolation(err) {
		return models.Conflict("tender %s has bids and cannot be deleted", tenderID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete tender: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound("tender %s not found", tenderID)
	}
	return nil
}

// CountDependents возвращает количество предложений по тендеру.
func (r *PostgresTenderRepository) CountDependents(ctx context.Context, tenderID string) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM bids WHERE tender_id = $1`, tenderID).Scan(&count)
	return count, err
}

// ListTenders возвращает список тендеров.
func (r *PostgresTenderRepository) ListTenders(ctx context.Context, filter models.TenderFilter) (*models.ListResult[models.Tender], error) {
	var b whereBuilder
	if len(filter.Status) > 0 {
		b.add("status = ANY($%d)", pq.Array(toStrings(filter.Status)))
	}
	if filter.StartsAfter != nil {
		b.add("start_date >= $%d", *filter.StartsAfter)
	}
	if filter.EndsBefore != nil {
		b.add("end_date <= $%d", *filter.EndsBefore)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM tenders`+b.where(), b.args...).Scan(&total); err != nil {
		return nil, err
	}

	limit, args := b.page(filter.Page)
	rows, err := r.DB.Query(ctx, `SELECT `+tenderColumns+` FROM tenders`+b.where()+` ORDER BY created_at DESC`+limit, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &models.ListResult[models.Tender]{Total: total}
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *tender)
	}
	return result, rows.Err()
}

func scanTender(row rowScanner) (*models.Tender, error) {
	var tender models.Tender
	err := row.Scan(
		&tender.ID,
		&tender.TenderNumber,
		&tender.Title,
		&tender.Description,
		&tender.Budget,
		&tender.Status,
		&tender.StartDate,
		&tender.EndDate,
		&tender.BidOpeningDate,
		&tender.CreatedBy,
		&tender.CreatedAt,
		&tender.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &tender, nil
}
