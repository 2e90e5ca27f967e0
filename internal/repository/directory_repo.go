package repository

import (
	"context"
	"errors"

	"github.com/Ossmium/avito/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmployeeDirectory - интерфейс справочника пользователей и организаций.
type EmployeeDirectory interface {
	FindByUsername(ctx context.Context, username string) (*models.Employee, error)
	FindByID(ctx context.Context, userID string) (*models.Employee, error)
	IsResponsibleFor(ctx context.Context, username, organizationID string) (bool, error)
	OrganizationOf(ctx context.Context, userID string) (string, error)
}

// PostgresEmployeeDirectory - реализация EmployeeDirectory для базы данных.
type PostgresEmployeeDirectory struct {
	DB *pgxpool.Pool
}

// NewPostgresEmployeeDirectory создает новый экземпляр PostgresEmployeeDirectory.
func NewPostgresEmployeeDirectory(db *pgxpool.Pool) *PostgresEmployeeDirectory {
	return &PostgresEmployeeDirectory{DB: db}
}

// FindByUsername ищет пользователя по username.
func (d *PostgresEmployeeDirectory) FindByUsername(ctx context.Context, username string) (*models.Employee, error) {
	var employee models.Employee
	query := `SELECT id, username, first_name, last_name, created_at FROM employee WHERE username = $1`
	err := d.DB.QueryRow(ctx, query, username).Scan(
		&employee.ID,
		&employee.Username,
		&employee.FirstName,
		&employee.LastName,
		&employee.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewAuthenticationError("user does not exist")
		}
		return nil, err
	}
	return &employee, nil
}

// FindByID ищет пользователя по id.
func (d *PostgresEmployeeDirectory) FindByID(ctx context.Context, userID string) (*models.Employee, error) {
	var employee models.Employee
	query := `SELECT id, username, first_name, last_name, created_at FROM employee WHERE id = $1`
	err := d.DB.QueryRow(ctx, query, userID).Scan(
		&employee.ID,
		&employee.Username,
		&employee.FirstName,
		&employee.LastName,
		&employee.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewAuthenticationError("user does not exist")
		}
		return nil, err
	}
	return &employee, nil
}

// IsResponsibleFor проверяет, является ли пользователь ответственным за организацию.
func (d *PostgresEmployeeDirectory) IsResponsibleFor(ctx context.Context, username, organizationID string) (bool, error) {
	var isResponsible bool
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM organization_responsible orr
			JOIN employee e ON orr.user_id = e.id
			WHERE e.username = $1 AND orr.organization_id = $2
		)`
	err := d.DB.QueryRow(ctx, query, username, organizationID).Scan(&isResponsible)
	if err != nil {
		return false, err
	}
	return isResponsible, nil
}

// OrganizationOf возвращает организацию, за которую отвечает пользователь.
// Пустая строка означает, что пользователь не состоит ни в одной организации.
func (d *PostgresEmployeeDirectory) OrganizationOf(ctx context.Context, userID string) (string, error) {
	var organizationID string
	query := `SELECT organization_id FROM organization_responsible WHERE user_id = $1 LIMIT 1`
	err := d.DB.QueryRow(ctx, query, userID).Scan(&organizationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return organizationID, nil
}
