package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (Token, error) {
	var token Token
	if err := c.Send(ctx, http.MethodPost, "/auth/login", nil, req, &token); err != nil {
		return Token{}, err
	}
	return token, nil
}

// Register creates an account. The backend replies with a message only.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.Send(ctx, http.MethodPost, "/auth/register", nil, req, nil)
}

// CurrentUser retrieves the signed-in user.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.get(ctx, "/users/me", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateProfile edits the signed-in user's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error) {
	var user User
	if err := c.Send(ctx, http.MethodPut, "/users/me/profile", nil, update, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateAvatar replaces the avatar (a base64 data URL).
func (c *Client) UpdateAvatar(ctx context.Context, update AvatarUpdate) (User, error) {
	var user User
	if err := c.Send(ctx, http.MethodPut, "/users/me/avatar", nil, update, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ChangePassword changes the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, change PasswordChange) error {
	return c.Send(ctx, http.MethodPost, "/users/me/password", nil, change, nil)
}
