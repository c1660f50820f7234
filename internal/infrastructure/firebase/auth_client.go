package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// AuthClient adapts Firebase token verification to the TokenVerifier
// capability the REST middleware and the realtime gateway depend on.
type AuthClient struct {
	client *auth.Client
}

func NewAuthClient(client *auth.Client) *AuthClient {
	return &AuthClient{
		client: client,
	}
}

// Verify resolves an ID token to the verified user id.
func (f *AuthClient) Verify(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}
