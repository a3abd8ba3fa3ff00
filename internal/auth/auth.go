// Package auth verifies identity-provider tokens and turns them into a
// core.Identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"

	"rently/internal/core"
	applog "rently/internal/log"
)

var ErrEmptyToken = errors.New("empty id token")

// Verifier checks ID tokens and revokes a user's refresh tokens on sign-out.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (core.Identity, error)
	Revoke(ctx context.Context, uid string) error
}

// TokenClient is the part of the Firebase auth client the verifier needs.
type TokenClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

type FirebaseVerifier struct {
	client TokenClient
}

var _ Verifier = (*FirebaseVerifier)(nil)

func NewFirebaseVerifier(client TokenClient) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (core.Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return core.Identity{}, &core.AuthError{Op: "verify", Err: ErrEmptyToken}
	}
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		slog.WarnContext(ctx, "ID token rejected",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldOperation, applog.OpValidate,
			applog.FieldError, err)
		return core.Identity{}, &core.AuthError{Op: "verify", Err: err}
	}
	return identityFromToken(tok), nil
}

func (v *FirebaseVerifier) Revoke(ctx context.Context, uid string) error {
	if err := v.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return &core.AuthError{Op: "revoke", Err: err}
	}
	return nil
}

func identityFromToken(tok *fbauth.Token) core.Identity {
	claim := func(name string) string {
		if s, ok := tok.Claims[name].(string); ok {
			return s
		}
		return ""
	}
	return core.Identity{
		UID:         tok.UID,
		DisplayName: claim("name"),
		Email:       claim("email"),
		PhotoURL:    claim("picture"),
	}
}

// DevVerifier accepts tokens of the form "dev:<uid>[:<name>[:<email>]]". It
// exists for local runs and tests and must never face real users.
type DevVerifier struct{}

var _ Verifier = DevVerifier{}

const devPrefix = "dev:"

func (DevVerifier) Verify(_ context.Context, idToken string) (core.Identity, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(idToken), devPrefix)
	if !ok {
		return core.Identity{}, &core.AuthError{Op: "verify", Err: fmt.Errorf("not a dev token")}
	}
	parts := strings.SplitN(rest, ":", 3)
	id := core.Identity{UID: strings.TrimSpace(parts[0])}
	if id.UID == "" {
		return core.Identity{}, &core.AuthError{Op: "verify", Err: ErrEmptyToken}
	}
	if len(parts) > 1 {
		id.DisplayName = parts[1]
	}
	if len(parts) > 2 {
		id.Email = parts[2]
	}
	return id, nil
}

func (DevVerifier) Revoke(context.Context, string) error { return nil }

// DevToken builds a token DevVerifier accepts.
func DevToken(uid, name, email string) string {
	return devPrefix + uid + ":" + name + ":" + email
}
