package earthengine

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested for service-account tokens.
var Scopes = []string{
	"https://www.googleapis.com/auth/earthengine",
	"https://www.googleapis.com/auth/cloud-platform",
}

// Credentials identify a service account. Key holds either the JSON key
// itself or a path to it.
type Credentials struct {
	ServiceAccount string
	Key            string
	Project        string
}

// ErrMissingCredentials is returned when no key is configured.
var ErrMissingCredentials = eris.New("earthengine: service account key not configured")

type keyFile struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	ProjectID   string `json:"project_id"`
}

// Resolved is a validated key ready to mint tokens.
type Resolved struct {
	ServiceAccount string
	Project        string
	json           []byte
}

// Resolve loads and checks the key. When both a service-account email and
// a key are given they must agree. The project falls back to the key's
// project_id.
func (c Credentials) Resolve() (*Resolved, error) {
	if strings.TrimSpace(c.Key) == "" {
		return nil, ErrMissingCredentials
	}

	raw := []byte(c.Key)
	if !strings.HasPrefix(strings.TrimSpace(c.Key), "{") {
		data, err := os.ReadFile(c.Key)
		if err != nil {
			return nil, eris.Wrap(err, "earthengine: read service account key")
		}
		raw = data
	}

	var kf keyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, eris.Wrap(err, "earthengine: parse service account key")
	}
	if kf.Type != "service_account" {
		return nil, eris.Errorf("earthengine: key type %q is not service_account", kf.Type)
	}
	if c.ServiceAccount != "" && !strings.EqualFold(c.ServiceAccount, kf.ClientEmail) {
		return nil, eris.Errorf("earthengine: key belongs to %s, not %s", kf.ClientEmail, c.ServiceAccount)
	}

	project := c.Project
	if project == "" {
		project = kf.ProjectID
	}
	if project == "" {
		return nil, eris.New("earthengine: no project configured and key has no project_id")
	}

	return &Resolved{ServiceAccount: kf.ClientEmail, Project: project, json: raw}, nil
}

// HTTPClient returns an HTTP client that signs requests with tokens for
// the service account. Tokens are refreshed on expiry.
func (r *Resolved) HTTPClient(ctx context.Context, timeout time.Duration) (*http.Client, error) {
	conf, err := google.JWTConfigFromJSON(r.json, Scopes...)
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: build token config")
	}
	hc := oauth2.NewClient(ctx, conf.TokenSource(ctx))
	hc.Timeout = timeout
	return hc, nil
}
