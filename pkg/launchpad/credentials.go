package launchpad

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/google/uuid"
)

// Credentials are the OAuth tokens stored by launchpadlib in its credentials file.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// LoadCredentials reads a launchpadlib credentials file. The file is INI formatted
// with a single section named "1".
func LoadCredentials(path string) (*Credentials, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	section, err := cfg.GetSection("1")
	if err != nil {
		return nil, fmt.Errorf("credentials file %s has no [1] section: %w", path, err)
	}

	creds := &Credentials{
		ConsumerKey:    section.Key("consumer_key").String(),
		ConsumerSecret: section.Key("consumer_secret").String(),
		AccessToken:    section.Key("access_token").String(),
		AccessSecret:   section.Key("access_secret").String(),
	}
	if creds.ConsumerKey == "" || creds.AccessToken == "" {
		return nil, fmt.Errorf("credentials file %s is missing consumer_key or access_token", path)
	}

	return creds, nil
}

// AuthorizationHeader builds an OAuth 1.0 PLAINTEXT Authorization header value.
func (c *Credentials) AuthorizationHeader(now time.Time) string {
	signature := url.QueryEscape(c.ConsumerSecret) + "&" + url.QueryEscape(c.AccessSecret)

	params := []struct{ key, value string }{
		{"oauth_consumer_key", c.ConsumerKey},
		{"oauth_token", c.AccessToken},
		{"oauth_signature_method", "PLAINTEXT"},
		{"oauth_signature", signature},
		{"oauth_timestamp", strconv.FormatInt(now.Unix(), 10)},
		{"oauth_nonce", uuid.NewString()},
		{"oauth_version", "1.0"},
	}

	var b strings.Builder
	b.WriteString(`OAuth realm="https://api.launchpad.net/"`)
	for _, p := range params {
		fmt.Fprintf(&b, `, %s="%s"`, p.key, url.QueryEscape(p.value))
	}
	return b.String()
}
