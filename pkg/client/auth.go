package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/naveenspark/hogwarts/pkg/domain"
)

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// LoginResult is a freshly issued bearer token and the minimal profile the
// API returned alongside it.
type LoginResult struct {
	Token string
	User  domain.User
}

// loginResponse accepts both shapes the API has shipped:
// {token, user} and {status, message, data: {access_token, id, email, username}}.
type loginResponse struct {
	Token       string       `json:"token"`
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
	Data        *struct {
		Token       string       `json:"token"`
		AccessToken string       `json:"access_token"`
		ID          domain.ID    `json:"id"`
		Email       string       `json:"email"`
		Username    string       `json:"username"`
		User        *domain.User `json:"user"`
	} `json:"data"`
}

func (r loginResponse) token() string {
	switch {
	case r.Token != "":
		return r.Token
	case r.AccessToken != "":
		return r.AccessToken
	case r.Data != nil && r.Data.AccessToken != "":
		return r.Data.AccessToken
	case r.Data != nil:
		return r.Data.Token
	}
	return ""
}

func (r loginResponse) user(email string) domain.User {
	switch {
	case r.User != nil:
		return *r.User
	case r.Data != nil && r.Data.User != nil:
		return *r.Data.User
	case r.Data != nil && (r.Data.ID != "" || r.Data.Email != ""):
		return domain.User{ID: r.Data.ID, Email: r.Data.Email, Username: r.Data.Username}
	}
	return domain.User{Email: email}
}

// Login exchanges credentials for a bearer token. A 401 here means bad
// credentials and does not reach the Authenticator.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var resp loginResponse
	req := request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
		public: true,
	}
	if err := c.doRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	tok := resp.token()
	if tok == "" {
		return nil, fmt.Errorf("client.Login: %w", &ResponseError{Detail: "no token"})
	}
	return &LoginResult{Token: tok, User: resp.user(email)}, nil
}

// Register creates an account and returns the server's message. It does not
// sign the user in.
func (c *Client) Register(ctx context.Context, r RegisterRequest) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	req := request{method: http.MethodPost, path: "/auth/register", body: r, public: true}
	if err := c.doRequest(ctx, req, &resp); err != nil {
		return "", fmt.Errorf("client.Register: %w", err)
	}
	return resp.Message, nil
}

// Me returns the profile behind the current bearer token.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var resp struct {
		User  *domain.User `json:"user"`
		Data  *domain.User `json:"data"`
		ID    domain.ID    `json:"id"`
		Email string       `json:"email"`
	}
	if err := c.get(ctx, "/auth/me", nil, &resp); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	switch {
	case resp.User != nil:
		return resp.User, nil
	case resp.Data != nil:
		return resp.Data, nil
	case resp.ID != "" || resp.Email != "":
		return &domain.User{ID: resp.ID, Email: resp.Email}, nil
	}
	return nil, fmt.Errorf("client.Me: %w", &ResponseError{Detail: "no user"})
}
