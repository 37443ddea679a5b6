package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smart_office/internal/models"
)

// OperatorSQLite stores dashboard accounts in the users table.
type OperatorSQLite struct {
	db *sql.DB
}

func NewOperatorSQLite(db *sql.DB) *OperatorSQLite {
	return &OperatorSQLite{db: db}
}

var _ OperatorRepo = (*OperatorSQLite)(nil)

const (
	insertOperatorSQL = `INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`
	selectOperatorSQL = `SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`
)

// Create inserts op and returns its id. An empty role is stored as USER.
func (r *OperatorSQLite) Create(ctx context.Context, op models.Operator) (int, error) {
	role := op.Role
	if role == "" {
		role = models.RoleUser
	}
	res, err := r.db.ExecContext(ctx, insertOperatorSQL, op.Username, op.PasswordHash, string(role), toMillis(op.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert operator %q: %w", op.Username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for operator %q: %w", op.Username, err)
	}
	return int(id), nil
}

// GetByUsername returns (nil, nil) when no such operator exists.
func (r *OperatorSQLite) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var (
		op        models.Operator
		role      string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, selectOperatorSQL, username).
		Scan(&op.ID, &op.Username, &op.PasswordHash, &role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select operator %q: %w", username, err)
	}
	op.Role = models.Role(role)
	if !op.Role.Valid() {
		op.Role = models.RoleUser
	}
	op.CreatedAt = fromMillis(createdAt)
	return &op, nil
}
