// Package auth injects API credentials into outgoing requests.
package auth

import (
	"context"
	"net/http"
)

// Provider supplies the credential for every API call.
type Provider interface {
	// Token returns the raw credential.
	Token(ctx context.Context) (string, error)

	// InjectHeader sets the Authorization header of req.
	InjectHeader(ctx context.Context, req *http.Request) error
}
