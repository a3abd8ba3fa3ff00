package firebase

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCredentialSources(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name    string
		creds   Credentials
		source  string
		wantErr bool
	}{
		{"json wins", Credentials{JSON: "{}", Base64: "e30=", File: file}, "json", false},
		{"base64", Credentials{Base64: "e30="}, "base64", false},
		{"bad base64", Credentials{Base64: "%%%"}, "", true},
		{"file", Credentials{File: file}, "file", false},
		{"missing file", Credentials{File: filepath.Join(t.TempDir(), "none.json")}, "", true},
		{"default", Credentials{}, "default", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, source, err := tt.creds.options()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if source != tt.source {
				t.Fatalf("source = %q, want %q", source, tt.source)
			}
			if source != "default" && len(opts) != 1 {
				t.Fatalf("expected one option, got %d", len(opts))
			}
		})
	}
}
