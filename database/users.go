package database

import (
	"context"
	"fmt"
	"sacrifice-website/models"
	"sacrifice-website/realtime"
	"sacrifice-website/storage"
	"time"
)

const TableUsers = "users"

// ==================== USER OPERATIONS ====================

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`
		SELECT id, email, name, image, role, status, created_at
		FROM users WHERE id = ?
	`), userID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0)
	err := r.db.SelectContext(ctx, &users, `
		SELECT id, email, name, image, role, status, created_at
		FROM users ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpsertUser creates a user or refreshes the profile of an existing one.
// Role and status of an existing user are left untouched.
func (r *Repository) UpsertUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, name, image, role, status, created_at)
		VALUES (:id, :email, :name, :image, :role, :status, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			image = excluded.image
	`, user)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	r.publishOne(TableUsers, realtime.EventUpdate, user, nil)
	return nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE users SET role = ?, status = ? WHERE id = ?
	`), user.Role, user.Status, user.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	r.publishOne(TableUsers, realtime.EventUpdate, user, nil)
	return nil
}

// ==================== SESSION OPERATIONS ====================

func (r *Repository) CreateSession(ctx context.Context, session *models.Session) error {
	now := r.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastUsedAt = now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at, created_at, last_used_at)
		VALUES (:id, :user_id, :expires_at, :created_at, :last_used_at)
	`, session)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession joins the owning user so role and status are always current.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, r.db.Rebind(`
		SELECT s.id, s.user_id, u.email, u.name, u.role, u.status,
			s.expires_at, s.created_at, s.last_used_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ?
	`), sessionID)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

func (r *Repository) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE sessions SET last_used_at = ? WHERE id = ?`), at.UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE id = ?`), sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return affected(res)
}
