package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/0xChaser/EasyBooking/internal/models"
)

const (
	PathLogin    = "/api/v1/auth/jwt/login"
	PathLogout   = "/api/v1/auth/jwt/logout"
	PathRegister = "/api/v1/auth/register"
	PathMe       = "/api/v1/user/me"
)

// Login exchanges credentials for a bearer token. The credentials travel as
// an OAuth2 password form with the email in the username field.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var resp models.TokenResponse
	if err := c.PostForm(ctx, PathLogin, form, &resp); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) &&
			(httpErr.StatusCode == http.StatusBadRequest || httpErr.StatusCode == http.StatusUnauthorized) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("login response carried no access token")
	}
	return resp.AccessToken, nil
}

// Logout revokes token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.WithToken(token).Post(ctx, PathLogout, nil, nil)
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := c.Post(ctx, PathRegister, req, nil); err != nil {
		return fmt.Errorf("register %s: %w", req.Email, err)
	}
	return nil
}

// CurrentUser resolves the identity behind token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.WithToken(token).Get(ctx, PathMe, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
