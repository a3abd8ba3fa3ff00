// Package firebase builds the Firebase Admin app shared by the auth verifier
// and the Firestore store.
package firebase

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	fb "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Credentials lists the places a service account can come from. The first
// non-empty one wins; with none set, application default credentials are used.
type Credentials struct {
	ProjectID string
	JSON      string
	Base64    string
	File      string
}

func (c Credentials) options() ([]option.ClientOption, string, error) {
	switch {
	case c.JSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.JSON))}, "json", nil
	case c.Base64 != "":
		raw, err := base64.StdEncoding.DecodeString(c.Base64)
		if err != nil {
			return nil, "", fmt.Errorf("decode base64 service account: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsJSON(raw)}, "base64", nil
	case c.File != "":
		raw, err := os.ReadFile(c.File)
		if err != nil {
			return nil, "", fmt.Errorf("read service account file: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsJSON(raw)}, "file", nil
	default:
		return nil, "default", nil
	}
}

// NewApp initializes the Admin SDK.
func NewApp(ctx context.Context, creds Credentials) (*fb.App, error) {
	opts, source, err := creds.options()
	if err != nil {
		return nil, err
	}
	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: creds.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	slog.InfoContext(ctx, "Firebase app initialized", "project_id", creds.ProjectID, "credentials", source)
	return app, nil
}
