package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"sacrifice-website/config"
	"sacrifice-website/models"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// AuthService handles admin panel sign in through Google
type AuthService struct {
	users    UserRepository
	sessions SessionStore
	validate TokenValidator
	oauth    *oauth2.Config
	clientID string
}

// NewAuthService creates a new auth service. A nil validator falls back to
// idtoken.Validate.
func NewAuthService(users UserRepository, sessions SessionStore, validate TokenValidator, cfg *config.Config) *AuthService {
	if validate == nil {
		validate = idtoken.Validate
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		validate: validate,
		clientID: cfg.GoogleClientID,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// UserInfo represents user information from Google
type UserInfo struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

// NewState returns a random value for the OAuth state cookie
func NewState() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// AuthCodeURL is where the browser is sent to start the code flow
func (as *AuthService) AuthCodeURL(state string) string {
	return as.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// LoginWithCode exchanges an authorization code and signs in with the
// ID token that comes back with it.
func (as *AuthService) LoginWithCode(ctx context.Context, code string) (*models.Session, error) {
	token, err := as.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Warn("OAuth code exchange failed", "error", err)
		return nil, ErrInvalidAuthCode
	}
	rawID, _ := token.Extra("id_token").(string)
	if rawID == "" {
		return nil, ErrInvalidToken
	}
	return as.LoginWithIDToken(ctx, rawID)
}

// LoginWithIDToken handles login via Google One Tap ID token
func (as *AuthService) LoginWithIDToken(ctx context.Context, rawToken string) (*models.Session, error) {
	payload, err := as.validate(ctx, rawToken, as.clientID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	info := &UserInfo{
		GoogleID: payload.Subject,
		Email:    email,
		Name:     name,
		Picture:  picture,
	}
	if info.GoogleID == "" || info.Email == "" {
		return nil, ErrInvalidUserInfo
	}

	user, err := as.upsertUser(ctx, info)
	if err != nil {
		return nil, err
	}
	if user.Status == models.UserBlocked {
		return nil, ErrForbidden
	}

	sess, err := as.sessions.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	slog.Info("User signed in", "user_id", user.ID, "status", user.Status)
	return sess, nil
}

// upsertUser stores the profile. New users start as pending editors; an
// existing user keeps role and status.
func (as *AuthService) upsertUser(ctx context.Context, info *UserInfo) (*models.User, error) {
	user := &models.User{
		ID:        info.GoogleID,
		Email:     info.Email,
		Name:      info.Name,
		Image:     info.Picture,
		Role:      models.RoleEditor,
		Status:    models.UserPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := as.users.UpsertUser(ctx, user); err != nil {
		return nil, err
	}

	stored, err := as.users.GetUser(ctx, info.GoogleID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrUserNotFound
	}
	return stored, nil
}

// Logout handles user logout
func (as *AuthService) Logout(ctx context.Context, sessionID string) error {
	return as.sessions.Delete(ctx, sessionID)
}

// Me returns current session information
func (as *AuthService) Me(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := as.sessions.Get(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}
