package repository

import (
	"context"
	"errors"

	"github.com/marmeebeau/capstone-final/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrCoordinatorNotFound is returned when a lookup matches no row.
var ErrCoordinatorNotFound = errors.New("coordinator not found")

// DB is the slice of pgxpool.Pool the repository needs. pgxmock satisfies it too.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type CoordinatorRepository struct {
	DB DB
}

func NewCoordinatorRepository(db DB) *CoordinatorRepository {
	return &CoordinatorRepository{DB: db}
}

const coordinatorColumns = `id, username, email, first_name, last_name, contact, address, password_hash, role, created_at, updated_at`

func scanCoordinator(row pgx.Row) (*model.Coordinator, error) {
	var c model.Coordinator
	err := row.Scan(&c.ID, &c.Username, &c.Email, &c.FirstName, &c.LastName, &c.Contact,
		&c.Address, &c.PasswordHash, &c.Role, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCoordinatorNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a new coordinator and returns the stored row.
func (r *CoordinatorRepository) Create(ctx context.Context, c *model.Coordinator) (*model.Coordinator, error) {
	query := `INSERT INTO coordinators (username, email, first_name, last_name, contact, address, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + coordinatorColumns
	row := r.DB.QueryRow(ctx, query,
		c.Username, c.Email, c.FirstName, c.LastName, c.Contact, c.Address, c.PasswordHash, c.Role)
	return scanCoordinator(row)
}

func (r *CoordinatorRepository) FindOne(ctx context.Context, id int64) (*model.Coordinator, error) {
	query := `SELECT ` + coordinatorColumns + ` FROM coordinators WHERE id = $1`
	return scanCoordinator(r.DB.QueryRow(ctx, query, id))
}

// FindByIdentifier looks a coordinator up by username or email. The identifier
// must already be normalized (trimmed, lowercased); stored values are lowercase.
func (r *CoordinatorRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.Coordinator, error) {
	query := `SELECT ` + coordinatorColumns + ` FROM coordinators WHERE username = $1 OR email = $1`
	return scanCoordinator(r.DB.QueryRow(ctx, query, identifier))
}

// FindConflict returns an existing coordinator whose username or email collides
// with the given pair, ignoring excludeID (0 to check all rows). A nil, nil
// return means the pair is free.
func (r *CoordinatorRepository) FindConflict(ctx context.Context, username, email string, excludeID int64) (*model.Coordinator, error) {
	query := `SELECT ` + coordinatorColumns + ` FROM coordinators
		WHERE (username = $1 OR email = $2) AND id <> $3 LIMIT 1`
	c, err := scanCoordinator(r.DB.QueryRow(ctx, query, username, email, excludeID))
	if errors.Is(err, ErrCoordinatorNotFound) {
		return nil, nil
	}
	return c, err
}

func (r *CoordinatorRepository) FindMany(ctx context.Context) ([]model.Coordinator, error) {
	query := `SELECT ` + coordinatorColumns + ` FROM coordinators ORDER BY id`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Coordinator{}
	for rows.Next() {
		var c model.Coordinator
		if err := rows.Scan(&c.ID, &c.Username, &c.Email, &c.FirstName, &c.LastName, &c.Contact,
			&c.Address, &c.PasswordHash, &c.Role, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Update persists every mutable field of c and returns the stored row.
func (r *CoordinatorRepository) Update(ctx context.Context, c *model.Coordinator) (*model.Coordinator, error) {
	query := `UPDATE coordinators
		SET username = $1, email = $2, first_name = $3, last_name = $4, contact = $5,
		    address = $6, password_hash = $7, role = $8, updated_at = now()
		WHERE id = $9
		RETURNING ` + coordinatorColumns
	row := r.DB.QueryRow(ctx, query,
		c.Username, c.Email, c.FirstName, c.LastName, c.Contact, c.Address, c.PasswordHash, c.Role, c.ID)
	return scanCoordinator(row)
}
