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
)

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	CreateBid(ctx context.Context, bidReq models.BidRequest, responsibleOrgID string) (*models.Bid, error)
	GetUserBid(ctx context.Context, limit, offset int, username string) ([]models.Bid, error)
	GetTenderBid(ctx context.Context, tenderID, username string, limit, offset int) ([]models.Bid, error)
	GetBidByID(ctx context.Context, bidID string) (*models.Bid, error)
	GetBidStatus(ctx context.Context, bidID, username string) (models.BidStatus, error)
	CanModifyBid(ctx context.Context, username, bidID string) (bool, error)
	CanReviewBid(ctx context.Context, username, bidID string) (bool, error)
	UpdateBidStatus(ctx context.Context, bidID string, status models.BidStatus, expectedVersion int32) (*models.Bid, error)
	EditBid(ctx context.Context, bidID string, expectedVersion int32, updateFields map[string]interface{}) (*models.Bid, error)
	RollbackBid(ctx context.Context, bidID string, version int32) (*models.Bid, error)
	SubmitBidFeedback(ctx context.Context, review models.BidReview) error
	GetBidReviews(ctx context.Context, tenderID, authorUsername string, limit, offset int) ([]models.BidReview, error)
	InsertBidDecision(ctx context.Context, decision models.BidDecision) error
	GetBidDecisions(ctx context.Context, bidID string) ([]models.BidDecision, error)
	CountBidResponders(ctx context.Context, bidID string) (int, error)
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidFields = `id, name, description, status, tender_id, author_type, author_id, version, created_at`

func scanBid(row pgx.Row) (*models.Bid, error) {
	var bid models.Bid
	err := row.Scan(
		&bid.ID,
		&bid.Name,
		&bid.Description,
		&bid.Status,
		&bid.TenderID,
		&bid.AuthorType,
		&bid.AuthorID,
		&bid.Version,
		&bid.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// insertBidVersion добавляет снимок предложения в историю версий.
// Вызывается только внутри транзакции, изменившей предложение.
func insertBidVersion(ctx context.Context, q querier, bid *models.Bid) error {
	query := `INSERT INTO bid_version (id, bid_id, name, description, status, tender_id, author_type, author_id, version, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := q.Exec(
		ctx,
		query,
		uuid.New().String(),
		bid.ID,
		bid.Name,
		bid.Description,
		bid.Status,
		bid.TenderID,
		bid.AuthorType,
		bid.AuthorID,
		bid.Version,
		bid.CreatedAt)
	return err
}

// CreateBid создает новое предложение вместе со связью с организацией,
// принимающей решение, и первым снимком версии.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, bidReq models.BidRequest, responsibleOrgID string) (*models.Bid, error) {
	newBid := models.Bid{
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

	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		insertQuery := `INSERT INTO bid (id, name, description, status, tender_id, author_type, author_id, version, created_at)
		                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err := tx.Exec(
			ctx,
			insertQuery,
			newBid.ID,
			newBid.Name,
			newBid.Description,
			newBid.Status,
			newBid.TenderID,
			newBid.AuthorType,
			newBid.AuthorID,
			newBid.Version,
			newBid.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return models.NewConflictError("bid was already created for this tender")
			}
			return fmt.Errorf("failed to insert bid: %w", err)
		}

		var orgID interface{}
		if responsibleOrgID != "" {
			orgID = responsibleOrgID
		}
		responsibleQuery := `INSERT INTO bid_responsible (id, bid_id, organization_id) VALUES ($1, $2, $3)`
		if _, err := tx.Exec(ctx, responsibleQuery, uuid.New().String(), newBid.ID, orgID); err != nil {
			return err
		}

		return insertBidVersion(ctx, tx, &newBid)
	})
	if err != nil {
		return nil, err
	}
	return &newBid, nil
}

// GetUserBid возвращает список предложений пользователя.
func (r *PostgresBidRepository) GetUserBid(ctx context.Context, limit, offset int, username string) ([]models.Bid, error) {
	query := `
		SELECT b.id, b.name, b.description, b.status, b.tender_id, b.author_type, b.author_id, b.version, b.created_at
		FROM bid b
		JOIN employee e ON b.author_id = e.id
		WHERE e.username = $1
		ORDER BY b.name
		LIMIT $2 OFFSET $3`

	rows, err := r.DB.Query(ctx, query, username, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userBids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		userBids = append(userBids, *bid)
	}
	return userBids, rows.Err()
}

// GetTenderBid возвращает предложения тендера, видимые пользователю:
// предложения, где он автор или ответственный, и все опубликованные.
func (r *PostgresBidRepository) GetTenderBid(ctx context.Context, tenderID, username string, limit, offset int) ([]models.Bid, error) {
	query := `
		SELECT b.id, b.name, b.description, b.status, b.tender_id, b.author_type, b.author_id, b.version, b.created_at
		FROM bid b
		LEFT JOIN bid_responsible bres ON bres.bid_id = b.id
		WHERE b.tender_id = $1 AND (
			b.status = $2
			OR (b.author_type = $3 AND b.author_id = (SELECT id FROM employee WHERE username = $4))
			OR EXISTS(
				SELECT 1
				FROM organization_responsible orr
				JOIN employee e ON orr.user_id = e.id
				WHERE e.username = $4 AND orr.organization_id = bres.organization_id
			))
		ORDER BY b.name
		LIMIT $5 OFFSET $6`
	rows, err := r.DB.Query(ctx, query, tenderID, models.PublishedBid, models.User, username, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, rows.Err()
}

// GetBidByID получает предложение по ID.
func (r *PostgresBidRepository) GetBidByID(ctx context.Context, bidID string) (*models.Bid, error) {
	query := `SELECT ` + bidFields + ` FROM bid WHERE id = $1`
	bid, err := scanBid(r.DB.QueryRow(ctx, query, bidID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewNotFoundError("bid not found")
		}
		return nil, err
	}
	return bid, nil
}

// GetBidStatus возвращает статус предложения, если оно видно пользователю.
// Невидимое и несуществующее предложение для вызывающего неразличимы.
func (r *PostgresBidRepository) GetBidStatus(ctx context.Context, bidID, username string) (models.BidStatus, error) {
	var status models.BidStatus
	query := `
		SELECT b.status
		FROM bid b
		LEFT JOIN bid_responsible bres ON bres.bid_id = b.id
		WHERE b.id = $1 AND (
			(b.author_type = $2 AND b.author_id = (SELECT id FROM employee WHERE username = $3))
			OR EXISTS(
				SELECT 1
				FROM organization_responsible orr
				JOIN employee e ON orr.user_id = e.id
				WHERE e.username = $3 AND orr.organization_id = bres.organization_id
			))`
	err := r.DB.QueryRow(ctx, query, bidID, models.User, username).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.NewNotFoundError("bid not found")
		}
		return "", err
	}
	return status, nil
}

// CanModifyBid проверяет, что пользователь - автор предложения или
// ответственный организации, принимающей по нему решение.
func (r *PostgresBidRepository) CanModifyBid(ctx context.Context, username, bidID string) (bool, error) {
	var isAuthorized bool
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM bid b
			LEFT JOIN bid_responsible bres ON bres.bid_id = b.id
			WHERE b.id = $1 AND (
				(b.author_type = $2 AND b.author_id = (SELECT id FROM employee WHERE username = $3))
				OR EXISTS(
					SELECT 1
					FROM organization_responsible orr
					JOIN employee e ON orr.user_id = e.id
					WHERE e.username = $3 AND orr.organization_id = bres.organization_id
				))
		)`
	err := r.DB.QueryRow(ctx, query, bidID, models.User, username).Scan(&isAuthorized)
	return isAuthorized, err
}

// CanReviewBid проверяет, что пользователь отвечает за организацию-владельца
// тендера, а предложение опубликовано.
func (r *PostgresBidRepository) CanReviewBid(ctx context.Context, username, bidID string) (bool, error) {
	var isAuthorized bool
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM bid b
			JOIN tender t ON b.tender_id = t.id
			JOIN organization_responsible orr ON orr.organization_id = t.organization_id
			JOIN employee e ON orr.user_id = e.id
			WHERE b.id = $1 AND b.status = $2 AND e.username = $3
		)`
	err := r.DB.QueryRow(ctx, query, bidID, models.PublishedBid, username).Scan(&isAuthorized)
	return isAuthorized, err
}

// UpdateBidStatus меняет статус предложения с проверкой версии:
// при гонке на счетчике версий возвращается конфликт.
func (r *PostgresBidRepository) UpdateBidStatus(ctx context.Context, bidID string, status models.BidStatus, expectedVersion int32) (*models.Bid, error) {
	var updatedBid *models.Bid
	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		query := `UPDATE bid SET status = $1, version = version + 1
		          WHERE id = $2 AND version = $3
		          RETURNING ` + bidFields
		bid, err := scanBid(tx.QueryRow(ctx, query, status, bidID, expectedVersion))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewConflictError("bid was modified concurrently")
			}
			return err
		}
		updatedBid = bid
		return insertBidVersion(ctx, tx, bid)
	})
	if err != nil {
		return nil, err
	}
	return updatedBid, nil
}

// EditBid меняет поля предложения. Пустые поля пропускаются,
// версия растет только при наличии хотя бы одного изменения.
func (r *PostgresBidRepository) EditBid(ctx context.Context, bidID string, expectedVersion int32, updateFields map[string]interface{}) (*models.Bid, error) {
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

	if len(updates) == 0 {
		return nil, models.NewInvalidStateError("no valid fields to update")
	}

	updates = append(updates, "version = version + 1")
	query := fmt.Sprintf(
		"UPDATE bid SET %s WHERE id = $%d AND version = $%d RETURNING %s",
		strings.Join(updates, ", "), argIndex, argIndex+1, bidFields)
	args = append(args, bidID, expectedVersion)

	var updatedBid *models.Bid
	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		bid, err := scanBid(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewConflictError("bid was modified concurrently")
			}
			if isUniqueViolation(err) {
				return models.NewConflictError("bid was already created for this tender")
			}
			return err
		}
		updatedBid = bid
		return insertBidVersion(ctx, tx, bid)
	})
	if err != nil {
		return nil, err
	}
	return updatedBid, nil
}

// RollbackBid копирует поля снимка в предложение как новую версию.
// История не переписывается: откат сам становится новой записью.
func (r *PostgresBidRepository) RollbackBid(ctx context.Context, bidID string, version int32) (*models.Bid, error) {
	var updatedBid *models.Bid
	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		var rollbackVersion models.BidVersion
		query := `SELECT bid_id, name, description, status, tender_id, author_type, author_id, version, created_at
		          FROM bid_version WHERE bid_id = $1 AND version = $2`
		err := tx.QueryRow(ctx, query, bidID, version).Scan(
			&rollbackVersion.BidID,
			&rollbackVersion.Name,
			&rollbackVersion.Description,
			&rollbackVersion.Status,
			&rollbackVersion.TenderID,
			&rollbackVersion.AuthorType,
			&rollbackVersion.AuthorID,
			&rollbackVersion.Version,
			&rollbackVersion.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewNotFoundError("bid version not found")
			}
			return err
		}

		updateQuery := `UPDATE bid SET name = $1, description = $2, status = $3, version = version + 1
		                WHERE id = $4 RETURNING ` + bidFields
		bid, err := scanBid(tx.QueryRow(
			ctx,
			updateQuery,
			rollbackVersion.Name,
			rollbackVersion.Description,
			rollbackVersion.Status,
			bidID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewNotFoundError("bid not found")
			}
			return err
		}
		updatedBid = bid
		return insertBidVersion(ctx, tx, bid)
	})
	if err != nil {
		return nil, err
	}
	return updatedBid, nil
}

// SubmitBidFeedback сохраняет отзыв на предложение.
// Версия и история предложения не меняются.
func (r *PostgresBidRepository) SubmitBidFeedback(ctx context.Context, review models.BidReview) error {
	insertQuery := `INSERT INTO bid_review (id, bid_id, description, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.DB.Exec(ctx, insertQuery, review.ID, review.BidID, review.Description, review.CreatedAt)
	return err
}

// GetBidReviews получает отзывы на предложения автора в рамках тендера.
func (r *PostgresBidRepository) GetBidReviews(ctx context.Context, tenderID, authorUsername string, limit, offset int) ([]models.BidReview, error) {
	query := `
		SELECT br.id, br.bid_id, br.description, br.created_at
		FROM bid_review br
		JOIN bid b ON br.bid_id = b.id
		WHERE b.tender_id = $1
		AND b.author_id = (SELECT id FROM employee WHERE username = $2)
		ORDER BY br.created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.DB.Query(ctx, query, tenderID, authorUsername, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []models.BidReview
	for rows.Next() {
		var review models.BidReview
		if err := rows.Scan(&review.ID, &review.BidID, &review.Description, &review.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// InsertBidDecision сохраняет голос по предложению.
// Каждый голос записывается, дедупликации по пользователю нет.
func (r *PostgresBidRepository) InsertBidDecision(ctx context.Context, decision models.BidDecision) error {
	query := `INSERT INTO bid_decision (id, bid_id, decision, username) VALUES ($1, $2, $3, $4)`
	_, err := r.DB.Exec(ctx, query, decision.ID, decision.BidID, decision.Decision, decision.Username)
	return err
}

// GetBidDecisions возвращает все записанные голоса по предложению.
func (r *PostgresBidRepository) GetBidDecisions(ctx context.Context, bidID string) ([]models.BidDecision, error) {
	query := `SELECT id, bid_id, decision, username FROM bid_decision WHERE bid_id = $1`
	rows, err := r.DB.Query(ctx, query, bidID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []models.BidDecision
	for rows.Next() {
		var decision models.BidDecision
		if err := rows.Scan(&decision.ID, &decision.BidID, &decision.Decision, &decision.Username); err != nil {
			return nil, err
		}
		decisions = append(decisions, decision)
	}
	return decisions, rows.Err()
}

// CountBidResponders считает различных ответственных организации,
// принимающей решение по предложению.
func (r *PostgresBidRepository) CountBidResponders(ctx context.Context, bidID string) (int, error) {
	var count int
	query := `
		SELECT COUNT(DISTINCT orr.user_id)
		FROM bid_responsible bres
		JOIN organization_responsible orr ON orr.organization_id = bres.organization_id
		WHERE bres.bid_id = $1`
	err := r.DB.QueryRow(ctx, query, bidID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
