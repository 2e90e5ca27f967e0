package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ossmium/avito/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// TenderRepository - интерфейс для работы с тендерами.
type TenderRepository interface {
	GetTenders(ctx context.Context, username string, limit, offset int, serviceTypes []string) ([]models.Tender, error)
	CreateTender(ctx context.Context, tenderReq models.TenderRequest) (*models.Tender, error)
	GetUserTender(ctx context.Context, limit, offset int, username string) ([]models.Tender, error)
	GetTenderByID(ctx context.Context, tenderID string) (*models.Tender, error)
	GetTenderStatus(ctx context.Context, tenderID, username string) (models.TenderStatus, error)
	CanModifyTender(ctx context.Context, username, tenderID string) (bool, error)
	UpdateTenderStatus(ctx context.Context, tenderID string, status models.TenderStatus, expectedVersion int32) (*models.Tender, error)
	EditTender(ctx context.Context, tenderID string, expectedVersion int32, updateFields map[string]interface{}) (*models.Tender, error)
	RollbackTender(ctx context.Context, tenderID string, version int32) (*models.Tender, error)
}

// PostgresTenderRepository - реализация TenderRepository для базы данных.
type PostgresTenderRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresTenderRepository создаёт новый экземпляр PostgresTenderRepository.
func NewPostgresTenderRepository(db *pgxpool.Pool) *PostgresTenderRepository {
	return &PostgresTenderRepository{DB: db}
}

const tenderFields = `id, name, description, service_type, status, organization_id, version, created_at, creator_username`

func scanTender(row pgx.Row) (*models.Tender, error) {
	var tender models.Tender
	err := row.Scan(
		&tender.ID,
		&tender.Name,
		&tender.Description,
		&tender.ServiceType,
		&tender.Status,
		&tender.OrganizationID,
		&tender.Version,
		&tender.CreatedAt,
		&tender.CreatorUsername,
	)
	if err != nil {
		return nil, err
	}
	return &tender, nil
}

// insertTenderVersion добавляет снимок тендера в историю версий.
// Вызывается только внутри транзакции, изменившей тендер.
func insertTenderVersion(ctx context.Context, q querier, tender *models.Tender) error {
	query := `INSERT INTO tender_version (id, tender_id, name, description, service_type, status, organization_id, version, created_at, creator_username)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := q.Exec(
		ctx,
		query,
		uuid.New().String(),
		tender.ID,
		tender.Name,
		tender.Description,
		tender.ServiceType,
		tender.Status,
		tender.OrganizationID,
		tender.Version,
		tender.CreatedAt,
		tender.CreatorUsername)
	return err
}

// GetTenders возвращает список тендеров, видимых пользователю:
// тендеры его организаций и все опубликованные.
func (r *PostgresTenderRepository) GetTenders(ctx context.Context, username string, limit, offset int, serviceTypes []string) ([]models.Tender, error) {
	query := `
		SELECT ` + tenderFields + `
		FROM tender
		WHERE (status = $1 OR EXISTS(
			SELECT 1
			FROM organization_responsible orr
			JOIN employee e ON orr.user_id = e.id
			WHERE e.username = $2 AND orr.organization_id = tender.organization_id
		))`
	args := []interface{}{models.PublishedTender, username}
	argIndex := 3

	orderBy := " ORDER BY created_at"
	if len(serviceTypes) > 0 {
		query += fmt.Sprintf(" AND service_type = ANY($%d)", argIndex)
		args = append(args, pq.Array(serviceTypes))
		argIndex++
		orderBy = " ORDER BY name"
	}

	query += orderBy + fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, *tender)
	}
	return tenders, rows.Err()
}

// CreateTender создает новый тендер вместе с первым снимком версии.
func (r *PostgresTenderRepository) CreateTender(ctx context.Context, tenderReq models.TenderRequest) (*models.Tender, error) {
	newTender := models.Tender{
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

	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tender (id, name, description, service_type, status, organization_id, version, created_at, creator_username)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			newTender.ID,
			newTender.Name,
			newTender.Description,
			newTender.ServiceType,
			newTender.Status,
			newTender.OrganizationID,
			newTender.Version,
			newTender.CreatedAt,
			newTender.CreatorUsername)
		if err != nil {
			if isUniqueViolation(err) {
				return models.NewConflictError("tender with this name already exists")
			}
			return fmt.Errorf("failed to insert tender: %w", err)
		}
		return insertTenderVersion(ctx, tx, &newTender)
	})
	if err != nil {
		return nil, err
	}
	return &newTender, nil
}

// GetUserTender возвращает список тендеров, созданных пользователем.
func (r *PostgresTenderRepository) GetUserTender(ctx context.Context, limit, offset int, username string) ([]models.Tender, error) {
	query := `SELECT ` + tenderFields + `
	          FROM tender WHERE creator_username = $1 ORDER BY name LIMIT $2 OFFSET $3`

	rows, err := r.DB.Query(ctx, query, username, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, *tender)
	}
	return tenders, rows.Err()
}

// GetTenderByID получает тендер по ID.
func (r *PostgresTenderRepository) GetTenderByID(ctx context.Context, tenderID string) (*models.Tender, error) {
	query := `SELECT ` + tenderFields + ` FROM tender WHERE id = $1`
	tender, err := scanTender(r.DB.QueryRow(ctx, query, tenderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewNotFoundError("tender not found")
		}
		return nil, err
	}
	return tender, nil
}

// GetTenderStatus возвращает статус тендера, если он виден пользователю.
// Невидимый и несуществующий тендер для вызывающего неразличимы.
func (r *PostgresTenderRepository) GetTenderStatus(ctx context.Context, tenderID, username string) (models.TenderStatus, error) {
	var status models.TenderStatus
	query := `
		SELECT status FROM tender
		WHERE id = $1 AND (status = $2 OR EXISTS(
			SELECT 1
			FROM organization_responsible orr
			JOIN employee e ON orr.user_id = e.id
			WHERE e.username = $3 AND orr.organization_id = tender.organization_id
		))`
	err := r.DB.QueryRow(ctx, query, tenderID, models.PublishedTender, username).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.NewNotFoundError("tender not found")
		}
		return "", err
	}
	return status, nil
}

// CanModifyTender проверяет, является ли пользователь ответственным
// за организацию-владельца тендера.
func (r *PostgresTenderRepository) CanModifyTender(ctx context.Context, username, tenderID string) (bool, error) {
	var isResponsible bool
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM tender t
			JOIN organization_responsible orr ON orr.organization_id = t.organization_id
			JOIN employee e ON orr.user_id = e.id
			WHERE t.id = $1 AND e.username = $2
		)`
	err := r.DB.QueryRow(ctx, query, tenderID, username).Scan(&isResponsible)
	if err != nil {
		return false, err
	}
	return isResponsible, nil
}

// UpdateTenderStatus меняет статус тендера с проверкой версии:
// при гонке на счетчике версий возвращается конфликт.
func (r *PostgresTenderRepository) UpdateTenderStatus(ctx context.Context, tenderID string, status models.TenderStatus, expectedVersion int32) (*models.Tender, error) {
	var updatedTender *models.Tender
	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		query := `UPDATE tender SET status = $1, version = version + 1
		          WHERE id = $2 AND version = $3
		          RETURNING ` + tenderFields
		tender, err := scanTender(tx.QueryRow(ctx, query, status, tenderID, expectedVersion))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewConflictError("tender was modified concurrently")
			}
			return err
		}
		updatedTender = tender
		return insertTenderVersion(ctx, tx, tender)
	})
	if err != nil {
		return nil, err
	}
	return updatedTender, nil
}

// EditTender меняет поля тендера. Пустые поля пропускаются,
// версия растет только при наличии хотя бы одного изменения.
func (r *PostgresTenderRepository) EditTender(ctx context.Context, tenderID string, expectedVersion int32, updateFields map[string]interface{}) (*models.Tender, error) {
	var updates []string
	var args []interface{}
	argIndex := 1

	if name, ok := updateFields["name"].(string); ok && name != "" {
		updates = append(updates, fmt.Sprintf("name = $%d", argIndex))
		args = append(args, name)
		argIndex++
	}

	if description, ok := updateFields["description"].(string); ok && description != "" {
		updates = append(updates, fmt.Sprintf("description = $%d", argIndex))
		args = append(args, description)
		argIndex++
	}

	if serviceType, ok := updateFields["serviceType"].(string); ok && serviceType != "" {
		if !models.TenderServiceType(serviceType).Valid() {
			return nil, models.NewInvalidStateError(fmt.Sprintf("invalid service_type parameter: %s", serviceType))
		}
		updates = append(updates, fmt.Sprintf("service_type = $%d", argIndex))
		args = append(args, serviceType)
		argIndex++
	}

	if len(updates) == 0 {
		return nil, models.NewInvalidStateError("no valid fields to update")
	}

	updates = append(updates, "version = version + 1")
	query := fmt.Sprintf(
		"UPDATE tender SET %s WHERE id = $%d AND version = $%d RETURNING %s",
		strings.Join(updates, ", "), argIndex, argIndex+1, tenderFields)
	args = append(args, tenderID, expectedVersion)

	var updatedTender *models.Tender
	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		tender, err := scanTender(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewConflictError("tender was modified concurrently")
			}
			if isUniqueViolation(err) {
				return models.NewConflictError("tender with this name already exists")
			}
			return err
		}
		updatedTender = tender
		return insertTenderVersion(ctx, tx, tender)
	})
	if err != nil {
		return nil, err
	}
	return updatedTender, nil
}

// RollbackTender копирует поля снимка в тендер как новую версию.
// История не переписывается: откат сам становится новой записью.
func (r *PostgresTenderRepository) RollbackTender(ctx context.Context, tenderID string, version int32) (*models.Tender, error) {
	var updatedTender *models.Tender
	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		var rollbackVersion models.TenderVersion
		query := `SELECT tender_id, name, description, service_type, status, organization_id, version, created_at, creator_username
		          FROM tender_version WHERE tender_id = $1 AND version = $2`
		err := tx.QueryRow(ctx, query, tenderID, version).Scan(
			&rollbackVersion.TenderID,
			&rollbackVersion.Name,
			&rollbackVersion.Description,
			&rollbackVersion.ServiceType,
			&rollbackVersion.Status,
			&rollbackVersion.OrganizationID,
			&rollbackVersion.Version,
			&rollbackVersion.CreatedAt,
			&rollbackVersion.CreatorUsername,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewNotFoundError("tender version not found")
			}
			return err
		}

		updateQuery := `UPDATE tender SET name = $1, description = $2, service_type = $3, status = $4, version = version + 1
		                WHERE id = $5 RETURNING ` + tenderFields
		tender, err := scanTender(tx.QueryRow(
			ctx,
			updateQuery,
			rollbackVersion.Name,
			rollbackVersion.Description,
			rollbackVersion.ServiceType,
			rollbackVersion.Status,
			tenderID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewNotFoundError("tender not found")
			}
			return err
		}
		updatedTender = tender
		return insertTenderVersion(ctx, tx, tender)
	})
	if err != nil {
		return nil, err
	}
	return updatedTender, nil
}
