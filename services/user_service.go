package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sacrifice-website/models"
	"sacrifice-website/storage"
)

// UserService lets admins approve and block panel users
type UserService struct {
	repo    UserRepository
	changes *ChangeLogService
}

func NewUserService(repo UserRepository, changes *ChangeLogService) *UserService {
	return &UserService{repo: repo, changes: changes}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}

// Update changes a user's role or status. Admins cannot demote or block
// themselves.
func (s *UserService) Update(ctx context.Context, userID string, req models.UpdateUserRequest, actor *models.Session) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if actor != nil && actor.UserID == userID {
		if (req.Role != nil && *req.Role != models.RoleAdmin) || (req.Status != nil && *req.Status != models.UserApproved) {
			return nil, ErrForbidden
		}
	}

	var diff Diff
	if req.Role != nil {
		diff.Add("role", user.Role, *req.Role)
		user.Role = *req.Role
	}
	if req.Status != nil {
		diff.Add("status", user.Status, *req.Status)
		user.Status = *req.Status
	}
	if len(diff) == 0 {
		return user, nil
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	owner := ""
	if actor != nil {
		owner = actor.Email
	}
	s.changes.RecordUpdate(ctx, tableUsers, user.ID, owner, "user "+user.Email+" updated", diff)
	slog.Info("User updated", "user_id", user.ID, "role", user.Role, "status", user.Status, "by", owner)
	return user, nil
}
