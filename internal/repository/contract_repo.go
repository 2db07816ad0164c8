package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// ContractRepository - интерфейс для работы с контрактами.
type ContractRepository interface {
	DependencyChecker
	CreateContract(ctx context.Context, contract *models.Contract) error
	GetContract(ctx context.Context, contractID string) (*models.Contract, error)
	UpdateContract(ctx context.Context, contract *models.Contract) error
	// UpdateContractStatus меняет статус, только если текущий статус равен from.
	UpdateContractStatus(ctx context.Context, contractID string, from, to models.ContractStatus) error
	DeleteContract(ctx context.Context, contractID string) error
	ListContracts(ctx context.Context, filter models.ContractFilter) (*models.ListResult[models.Contract], error)
	ContractStats(ctx context.Context) (*models.ContractStats, error)
}

// PostgresContractRepository - реализация ContractRepository для базы данных.
type PostgresContractRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresContractRepository создаёт новый экземпляр PostgresContractRepository.
func NewPostgresContractRepository(db *pgxpool.Pool) *PostgresContractRepository {
	return &PostgresContractRepository{DB: db}
}

const contractColumns = `id, contract_number, title, type, status, parties, start_date, end_date, value, currency, terms, created_by, created_at, updated_at`

// CreateContract сохраняет новый контракт.
func (r *PostgresContractRepository) CreateContract(ctx context.Context, contract *models.Contract) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO contracts (`+contractColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		contract.ID,
		contract.ContractNumber,
		contract.Title,
		contract.Type,
		contract.Status,
		contract.Parties,
		contract.StartDate,
		contract.EndDate,
		contract.Value,
		contract.Currency,
		contract.Terms,
		contract.CreatedBy,
		contract.CreatedAt,
		contract.UpdatedAt)
	if isUniqueViolation(err, "contracts_contract_number_key") {
		return models.Conflict("contract number %s already exists", contract.ContractNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

// GetContract возвращает контракт по ID.
func (r *PostgresContractRepository) GetContract(ctx context.Context, contractID string) (*models.Contract, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, contractID)
	contract, err := scanContract(row)
	if err != nil {
		return nil, notFound(err, "contract", contractID)
	}
	return contract, nil
}

// UpdateContract сохраняет поля черновика. Статус не меняется; если контракт
// уже не в draft, возвращается ErrStale.
func (r *PostgresContractRepository) UpdateContract(ctx context.Context, contract *models.Contract) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE contracts
		SET contract_number = $2, title = $3, type = $4, parties = $5, start_date = $6,
		    end_date = $7, value = $8, currency = $9, terms = $10, updated_at = $11
		WHERE id = $1 AND status = $12`,
		contract.ID,
		contract.ContractNumber,
		contract.Title,
		contract.Type,
		contract.Parties,
		contract.StartDate,
		contract.EndDate,
		contract.Value,
		contract.Currency,
		contract.Terms,
		contract.UpdatedAt,
		models.DraftContract)
	if isUniqueViolation(err, "contracts_contract_number_key") {
		return models.Conflict("contract number %s already exists", contract.ContractNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// UpdateContractStatus меняет статус контракта.
func (r *PostgresContractRepository) UpdateContractStatus(ctx context.Context, contractID string, from, to models.ContractStatus) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE contracts SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, contractID, from, to)
	if err != nil {
		return fmt.Errorf("failed to update contract status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// DeleteContract удаляет контракт.
func (r *PostgresContractRepository) DeleteContract(ctx context.Context, contractID string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, contractID)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFound("contract %s not found", contractID)
	}
	return nil
}

// CountDependents у контракта нет записей, блокирующих удаление.
func (r *PostgresContractRepository) CountDependents(ctx context.Context, contractID string) (int, error) {
	return 0, nil
}

// ListContracts возвращает список контрактов.
func (r *PostgresContractRepository) ListContracts(ctx context.Context, filter models.ContractFilter) (*models.ListResult[models.Contract], error) {
	var b whereBuilder
	if len(filter.Status) > 0 {
		b.add("status = ANY($%d)", pq.Array(toStrings(filter.Status)))
	}
	if len(filter.Type) > 0 {
		b.add("type = ANY($%d)", pq.Array(toStrings(filter.Type)))
	}
	if filter.EndsBefore != nil {
		b.add("end_date <= $%d", *filter.EndsBefore)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM contracts`+b.where(), b.args...).Scan(&total); err != nil {
		return nil, err
	}

	limit, args := b.page(filter.Page)
	rows, err := r.DB.Query(ctx, `SELECT `+contractColumns+` FROM contracts`+b.where()+` ORDER BY created_at DESC`+limit, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &models.ListResult[models.Contract]{Total: total}
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *contract)
	}
	return result, rows.Err()
}

// ContractStats считает контракты по статусам и типам.
func (r *PostgresContractRepository) ContractStats(ctx context.Context) (*models.ContractStats, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT status, type, COUNT(*), COALESCE(SUM(value), 0)::float8
		FROM contracts
		GROUP BY status, type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.ContractStats{
		ByStatus: make(map[models.ContractStatus]int),
		ByType:   make(map[models.ContractType]int),
	}
	for rows.Next() {
		var status models.ContractStatus
		var contractType models.ContractType
		var count int
		var value float64
		if err := rows.Scan(&status, &contractType, &count, &value); err != nil {
			return nil, err
		}
		stats.Total += count
		stats.TotalValue += value
		stats.ByStatus[status] += count
		stats.ByType[contractType] += count
	}
	stats.Active = stats.ByStatus[models.ActiveContract]
	stats.PendingApproval = stats.ByStatus[models.PendingApprovalContract]
	return stats, rows.Err()
}

func scanContract(row rowScanner) (*models.Contract, error) {
	var contract models.Contract
	err := row.Scan(
		&contract.ID,
		&contract.ContractNumber,
		&contract.Title,
		&contract.Type,
		&contract.Status,
		&contract.Parties,
		&contract.StartDate,
		&contract.EndDate,
		&contract.Value,
		&contract.Currency,
		&contract.Terms,
		&contract.CreatedBy,
		&contract.CreatedAt,
		&contract.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &contract, nil
}
