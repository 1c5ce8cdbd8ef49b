package services

import (
	"context"
	"errors"
	"sacrifice-website/config"
	"sacrifice-website/models"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		GoogleClientID:     "client-id.apps.googleusercontent.com",
		GoogleClientSecret: "secret",
		GoogleRedirectURL:  "http://localhost:3000/api/auth/callback",
	}
}

func validatorReturning(payload *idtoken.Payload, err error) TokenValidator {
	return func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		if audience != "client-id.apps.googleusercontent.com" {
			return nil, errors.New("wrong audience")
		}
		return payload, err
	}
}

func TestAuthService_LoginWithIDToken(t *testing.T) {
	goodPayload := &idtoken.Payload{
		Subject: "google-123",
		Claims: map[string]interface{}{
			"email":   "admin@example.com",
			"name":    "Admin",
			"picture": "https://example.com/a.png",
		},
	}

	tests := []struct {
		name          string
		validator     TokenValidator
		mockSetup     func(*MockRepository, *MockSessionStore)
		expectedError error
	}{
		{
			name:      "New user gets a pending session",
			validator: validatorReturning(goodPayload, nil),
			mockSetup: func(repo *MockRepository, sessions *MockSessionStore) {
				repo.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.ID == "google-123" && u.Role == models.RoleEditor && u.Status == models.UserPending
				})).Return(nil)
				stored := &models.User{ID: "google-123", Email: "admin@example.com", Role: models.RoleEditor, Status: models.UserPending}
				repo.On("GetUser", mock.Anything, "google-123").Return(stored, nil)
				sessions.On("Create", mock.Anything, stored).Return(&models.Session{ID: "sess-1", UserID: "google-123", Status: models.UserPending}, nil)
			},
		},
		{
			name:          "Invalid token",
			validator:     validatorReturning(nil, errors.New("bad signature")),
			mockSetup:     func(repo *MockRepository, sessions *MockSessionStore) {},
			expectedError: ErrInvalidToken,
		},
		{
			name:          "Token without email",
			validator:     validatorReturning(&idtoken.Payload{Subject: "google-123", Claims: map[string]interface{}{}}, nil),
			mockSetup:     func(repo *MockRepository, sessions *MockSessionStore) {},
			expectedError: ErrInvalidUserInfo,
		},
		{
			name:      "Blocked user",
			validator: validatorReturning(goodPayload, nil),
			mockSetup: func(repo *MockRepository, sessions *MockSessionStore) {
				repo.On("UpsertUser", mock.Anything, mock.Anything).Return(nil)
				repo.On("GetUser", mock.Anything, "google-123").Return(&models.User{ID: "google-123", Status: models.UserBlocked}, nil)
			},
			expectedError: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			sessions := new(MockSessionStore)
			tt.mockSetup(repo, sessions)
			svc := NewAuthService(repo, sessions, tt.validator, testAuthConfig())

			sess, err := svc.LoginWithIDToken(context.Background(), "raw-token")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "sess-1", sess.ID)
			repo.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestAuthService_AuthCodeURL(t *testing.T) {
	svc := NewAuthService(new(MockRepository), new(MockSessionStore), nil, testAuthConfig())

	state := NewState()
	url := svc.AuthCodeURL(state)

	assert.True(t, strings.HasPrefix(url, "https://accounts.google.com/"))
	assert.Contains(t, url, "client_id=client-id.apps.googleusercontent.com")
	assert.Contains(t, url, "state="+state)
	assert.NotEqual(t, state, NewState())
}

func TestAuthService_MeAndLogout(t *testing.T) {
	sessions := new(MockSessionStore)
	sessions.On("Get", mock.Anything, "sess-1").Return(&models.Session{ID: "sess-1"}, nil)
	sessions.On("Get", mock.Anything, "gone").Return(nil, nil)
	sessions.On("Delete", mock.Anything, "sess-1").Return(nil)
	svc := NewAuthService(new(MockRepository), sessions, nil, testAuthConfig())

	sess, err := svc.Me(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)

	_, err = svc.Me(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, svc.Logout(context.Background(), "sess-1"))
	sessions.AssertExpectations(t)
}
