package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrEmptyToken is returned when a bearer token is blank.
var ErrEmptyToken = errors.New("auth: token is empty")

var _ Provider = (*BearerTokenProvider)(nil)

// BearerTokenProvider sends a fixed personal access token as a bearer
// credential.
type BearerTokenProvider struct {
	token string
}

// NewBearerTokenProvider trims token and rejects blank values.
func NewBearerTokenProvider(token string) (*BearerTokenProvider, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &BearerTokenProvider{token: token}, nil
}

// Token returns the configured token without any network calls.
func (p *BearerTokenProvider) Token(ctx context.Context) (string, error) {
	return p.token, nil
}

// InjectHeader sets "Authorization: Bearer <token>".
func (p *BearerTokenProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	if req == nil {
		return errors.New("auth: nil request")
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	return nil
}
