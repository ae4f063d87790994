package launchpad

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write credentials: %v", err)
	}
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeCredentials(t, `[1]
consumer_key = ppactl
consumer_secret =
access_token = abc123
access_secret = s3cret
`)

	creds, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.ConsumerKey != "ppactl" || creds.AccessToken != "abc123" || creds.AccessSecret != "s3cret" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestLoadCredentialsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no section", "consumer_key = x\n"},
		{"missing token", "[1]\nconsumer_key = ppactl\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCredentials(writeCredentials(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadCredentials(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAuthorizationHeader(t *testing.T) {
	creds := &Credentials{ConsumerKey: "ppactl", AccessToken: "tok", AccessSecret: "a&b"}
	header := creds.AuthorizationHeader(time.Unix(1700000000, 0))

	if !strings.HasPrefix(header, `OAuth realm="https://api.launchpad.net/"`) {
		t.Errorf("unexpected prefix: %s", header)
	}
	for _, want := range []string{
		`oauth_timestamp="1700000000"`,
		`oauth_version="1.0"`,
		`oauth_nonce="`,
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header %q missing %s", header, want)
		}
	}
	// The signature is "consumer_secret&access_secret", each escaped, then escaped again.
	if !strings.Contains(header, `oauth_signature="%26a%2526b"`) {
		t.Errorf("unexpected signature in %s", header)
	}

	other := creds.AuthorizationHeader(time.Unix(1700000000, 0))
	if other == header {
		t.Error("expected a fresh nonce per header")
	}
}
