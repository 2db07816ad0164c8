package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// VendorRepository - интерфейс для работы с поставщиками.
type VendorRepository interface {
	DependencyChecker
	CreateVendor(ctx context.Context, vendor *models.Vendor) error
	GetVendor(ctx context.Context, vendorID string) (*models.Vendor, error)
	UpdateVendor(ctx context.Context, vendor *models.Vendor) error
	DeleteVendor(ctx context.Context, vendorID string) error
	ListVendors(ctx context.Context, filter models.VendorFilter) (*models.ListResult[models.Vendor], error)
	BidStatusCounts(ctx context.Context, vendorID string) (map[models.BidStatus]int, error)
}

// DependencyChecker считает записи, которые блокируют удаление сущности.
type DependencyChecker interface {
	CountDependents(ctx context.Context, id string) (int, error)
}

// PostgresVendorRepository - реализация VendorRepository для базы данных.
type PostgresVendorRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresVendorRepository создаёт новый экземпляр PostgresVendorRepository.
func NewPostgresVendorRepository(db *pgxpool.Pool) *PostgresVendorRepository {
	return &PostgresVendorRepository{DB: db}
}

const vendorColumns = `id, company_name, contact_person, email, phone, address, tax_id, rating, status, created_by, created_at, updated_at`

// CreateVendor сохраняет нового поставщика.
func (r *PostgresVendorRepository) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO vendors (`+vendorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		vendor.ID,
		vendor.CompanyName,
		vendor.ContactPerson,
		vendor.Email,
		vendor.Phone,
		vendor.Address,
		vendor.TaxID,
		vendor.Rating,
		vendor.Status,
		vendor.CreatedBy,
		vendor.CreatedAt,
		vendor.UpdatedAt)
	if isUniqueViolation(err, "vendors_email_key") {
		return models.Conflict("vendor with email %s already exists", vendor.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to insert vendor: %w", err)
	}
	return nil
}

// GetVendor возвращает поставщика по ID.
func (r *PostgresVendorRepository) GetVendor(ctx context.Context, vendorID string) (*models.Vendor, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, vendorID)
	vendor, err := scanVendor(row)
	if err != nil {
		return nil, notFound(err, "vendor", vendorID)
	}
	return vendor, nil
}

// UpdateVendor сохраняет изменения поставщика.
func (r *PostgresVendorRepository) UpdateVendor(ctx context.Context, vendor *models.Vendor) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE vendors
		SET company_name = $2, contact_person = $3, email = $4, phone = $5, address = $6,
		    tax_id = $7, rating = $8, status = $9, updated_at = $10
		WHERE id = $1`,
		vendor.ID,
		vendor.CompanyName,
		vendor.ContactPerson,
		vendor.Email,
		vendor.Phone,
		vendor.Address,
		vendor.TaxID,
		vendor.Rating,
		vendor.Status,
		vendor.UpdatedAt)
	if isUniqueViolation(err, "vendors_email_key") {
		return models.Conflict("vendor with email %s already exists", vendor.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to update vendor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound("vendor %s not found", vendor.ID)
	}
	return nil
}

// DeleteVendor удаляет поставщика.
func (r *PostgresVendorRepository) DeleteVendor(ctx context.Context, vendorID string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, vendorID)
	if isForeignKeyViolation(err) {
		return models.Conflict("vendor %s has bids and cannot be deleted", vendorID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound("vendor %s not found", vendorID)
	}
	return nil
}

// CountDependents возвращает количество предложений поставщика.
func (r *PostgresVendorRepository) CountDependents(ctx context.Context, vendorID string) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM bids WHERE vendor_id = $1`, vendorID).Scan(&count)
	return count, err
}

// ListVendors возвращает список поставщиков.
func (r *PostgresVendorRepository) ListVendors(ctx context.Context, filter models.VendorFilter) (*models.ListResult[models.Vendor], error) {
	var b whereBuilder
	if len(filter.Status) > 0 {
		b.add("status = ANY($%d)", pq.Array(toStrings(filter.Status)))
	}
	if filter.CompanyName != "" {
		b.add("company_name ILIKE '%%' || $%d || '%%'", filter.CompanyName)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+b.where(), b.args...).Scan(&total); err != nil {
		return nil, err
	}

	limit, args := b.page(filter.Page)
	rows, err := r.DB.Query(ctx, `SELECT `+vendorColumns+` FROM vendors`+b.where()+` ORDER BY created_at DESC`+limit, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &models.ListResult[models.Vendor]{Total: total}
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *vendor)
	}
	return result, rows.Err()
}

// BidStatusCounts возвращает количество предложений поставщика по статусам.
func (r *PostgresVendorRepository) BidStatusCounts(ctx context.Context, vendorID string) (map[models.BidStatus]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT status, COUNT(*) FROM bids WHERE vendor_id = $1 GROUP BY status`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.BidStatus]int)
	for rows.Next() {
		var status models.BidStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanVendor(row rowScanner) (*models.Vendor, error) {
	var vendor models.Vendor
	err := row.Scan(
		&vendor.ID,
		&vendor.CompanyName,
		&vendor.ContactPerson,
		&vendor.Email,
		&vendor.Phone,
		&vendor.Address,
		&vendor.TaxID,
		&vendor.Rating,
		&vendor.Status,
		&vendor.CreatedBy,
		&vendor.CreatedAt,
		&vendor.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}
