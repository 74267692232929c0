package retail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/eshaffer321/retail-go/internal/transport"
	internalTypes "github.com/eshaffer321/retail-go/internal/types"
)

// authService implements the AuthService interface
type authService struct {
	client *Client
}

type loginResponse struct {
	User    *User  `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login performs authentication
func (a *authService) Login(ctx context.Context, username, password string) (*User, error) {
	req := &transport.Request{
		Method: http.MethodPost,
		Path:   internalTypes.LoginPath,
		Body: map[string]string{
			"username": username,
			"password": password,
		},
	}

	var resp loginResponse
	if err := a.client.execute(ctx, req, &resp, transport.SkipAuthRefresh()); err != nil {
		status := StatusCode(err)
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return nil, &Error{
				Code:       "LOGIN_FAILED",
				Message:    err.Error(),
				StatusCode: status,
				Err:        fmt.Errorf("%w: %w", ErrLoginFailed, err),
			}
		}
		return nil, errors.Wrap(err, "login request failed")
	}

	if resp.Access == "" {
		return nil, errors.Wrap(ErrLoginFailed, "no access token in response")
	}

	creds := &Credentials{
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
		User:         resp.User,
	}
	if err := a.client.creds.SetSession(ctx, creds); err != nil {
		return nil, err
	}

	if a.client.options.Logger != nil {
		a.client.options.Logger.Info("Logged in", "username", username)
	}
	return a.client.creds.User(), nil
}

// Logout clears the session locally
func (a *authService) Logout(ctx context.Context) error {
	a.client.realtime.Disconnect()
	return errors.Wrap(a.client.creds.Clear(ctx), "failed to clear credentials")
}

func (a *authService) CurrentUser() *User {
	return a.client.creds.User()
}

func (a *authService) IsAuthenticated() bool {
	return a.client.creds.AccessToken() != ""
}

// Refresh obtains a new access token
func (a *authService) Refresh(ctx context.Context) error {
	_, err := a.client.transport.RefreshAccessToken(ctx)
	return err
}
