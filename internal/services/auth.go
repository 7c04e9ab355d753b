package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/reels/internal/models"
	"github.com/desertthunder/reels/internal/shared"
)

// AuthAPI exchanges credentials for a bearer token and manages the stored session.
type AuthAPI struct {
	api *APIService
	now func() time.Time
}

func NewAuthAPI(api *APIService) *AuthAPI { return &AuthAPI{api: api, now: time.Now} }

// Login posts credentials to /auth/login and stores the returned token.
func (a *AuthAPI) Login(ctx context.Context, email, password string) (*models.User, error) {
	if a.api.Store() == nil {
		return nil, fmt.Errorf("%w: no token store configured", shared.ErrInvalidConfig)
	}
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}

	var out models.LoginResponse
	err := a.api.DoAnonymous(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: invalid email or password", shared.ErrAuthFailed)
		}
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: no token in login response", shared.ErrAuthFailed)
	}

	user := out.User
	if err := a.api.Store().Save(&StoredToken{AccessToken: out.Token, User: &user, SavedAt: a.now()}); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout clears the stored token. It succeeds when no token is stored.
func (a *AuthAPI) Logout() error {
	if a.api.Store() == nil {
		return nil
	}
	return a.api.Store().Clear()
}

// Session returns the stored token, or [shared.ErrNotAuthenticated] / [shared.ErrTokenExpired].
func (a *AuthAPI) Session() (*StoredToken, error) {
	if a.api.Store() == nil {
		return nil, shared.ErrNotAuthenticated
	}
	token, err := a.api.Store().Load()
	if err != nil {
		return nil, err
	}
	if token == nil || token.AccessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}
	if exp := token.Expiry(); !exp.IsZero() && !a.now().Before(exp) {
		return token, shared.ErrTokenExpired
	}
	return token, nil
}
