package rest

import (
	"context"
	"fmt"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/ports"
)

// Authenticate exchanges Telegram initData for a session token, holds
// the token, mirrors it, and verifies the mirror read the same value
// back. A response without a token is a failure.
func (c *Client) Authenticate(ctx context.Context, initData string) (*entities.User, error) {
	var resp ports.AuthResponse
	if err := c.do(ctx, "POST", "/auth/telegram", ports.AuthRequest{InitData: initData}, &resp); err != nil {
		return nil, err
	}

	if resp.Token == "" {
		return nil, fmt.Errorf("authenticate: server response missing token")
	}

	if err := c.SetToken(resp.Token); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if c.mirror != nil {
		if err := c.mirror.VerifyToken(resp.Token); err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
	}

	return resp.User, nil
}

// Me fetches the current user using the held token
func (c *Client) Me(ctx context.Context) (*entities.User, error) {
	var user entities.User
	if err := c.do(ctx, "GET", "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateSettings persists the user preference blob
func (c *Client) UpdateSettings(ctx context.Context, settings entities.Settings) (*entities.User, error) {
	var user entities.User
	if err := c.do(ctx, "PUT", "/auth/settings", settings, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
