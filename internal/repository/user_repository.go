// Package repository holds the data access layer.
// This file implements user accounts. Duplicate usernames and emails are
// recognized from the driver's unique-violation error and reported as
// conflicts naming the field.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/fitness-tracker/internal/apperr"
	"github.com/iliyamo/fitness-tracker/internal/model"
	"github.com/iliyamo/fitness-tracker/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, username, email, password_hash, admin, created_at, updated_at"

// Create hashes the password and inserts a non-admin user.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, cost int) (model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, admin) VALUES (?, ?, ?, ?)",
		username, email, hash, false)
	if err != nil {
		if col, ok := uniqueViolation(err); ok {
			switch col {
			case "username":
				return model.User{}, apperr.Wrap(apperr.Conflict, "Username taken", err)
			case "email":
				return model.User{}, apperr.Wrap(apperr.Conflict, "Email taken", err)
			}
			return model.User{}, apperr.Wrap(apperr.Conflict, "Username or Email taken", err)
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByUsername fetches a user for login. A missing user is NotFound.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? LIMIT 1", strings.TrimSpace(username))
	return scanUser(row)
}

// GetByID fetches a user by id. A missing user is NotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Admin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, apperr.Wrap(apperr.NotFound, "User not found", err)
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
