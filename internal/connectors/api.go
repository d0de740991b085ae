package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/cryptox"
	"github.com/dmitrijs2005/wotcsync/internal/netx"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

// PayEntry is one paycheck line for one employee and pay period.
type PayEntry struct {
	ID                 string    `json:"id"`
	EmployeeExternalID string    `json:"employee_id"`
	PeriodStart        time.Time `json:"period_start"`
	PeriodEnd          time.Time `json:"period_end"`
	Hours              float64   `json:"hours"`
	Wages              float64   `json:"wages"`
}

// ExternalEmployee is a roster entry or a new hire as the provider sees it.
type ExternalEmployee struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	HireDate  *time.Time `json:"hire_date,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	Position  string     `json:"position"`
	Wage      float64    `json:"wage"`
}

type ProviderAPI interface {
	FetchPayEntries(ctx context.Context, since, until time.Time) ([]PayEntry, error)
	FetchEmployees(ctx context.Context) ([]ExternalEmployee, error)
	FetchHires(ctx context.Context, since time.Time) ([]ExternalEmployee, error)
}

// APIFactory builds an authenticated client for one connection.
type APIFactory interface {
	For(ctx context.Context, conn *models.SyncConnection, kind ProviderKind) (ProviderAPI, error)
}

// providerCredentials is the decrypted credential blob of a connection. A
// blob that is not JSON is taken as a bare access token.
type providerCredentials struct {
	AccessToken string `json:"access_token"`
	BaseURL     string `json:"base_url"`
}

// HTTPAPIFactory serves every kind through the same JSON API shape; the
// per-kind base URL comes from configuration or the credential blob.
type HTTPAPIFactory struct {
	BaseURLs map[ProviderKind]string
	Vault    *cryptox.Vault
	Client   *http.Client
}

func (f *HTTPAPIFactory) For(ctx context.Context, conn *models.SyncConnection, kind ProviderKind) (ProviderAPI, error) {
	raw := conn.EncryptedCredentials
	if f.Vault != nil {
		plain, err := f.Vault.DecryptStrict(raw)
		if err != nil {
			return nil, fmt.Errorf("connection %s credentials: %w: %w", conn.ID, common.ErrConfiguration, err)
		}
		raw = plain
	}

	var creds providerCredentials
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		if err := json.Unmarshal([]byte(raw), &creds); err != nil {
			return nil, fmt.Errorf("connection %s credentials: %v: %w", conn.ID, err, common.ErrConfiguration)
		}
	} else {
		creds.AccessToken = raw
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("connection %s has no access token: %w", conn.ID, common.ErrConfiguration)
	}

	base := creds.BaseURL
	if base == "" {
		base = f.BaseURLs[kind]
	}
	if base == "" {
		return nil, fmt.Errorf("no API endpoint configured for %s: %w", kind, common.ErrConfiguration)
	}

	return &HTTPProviderAPI{baseURL: strings.TrimRight(base, "/"), token: creds.AccessToken, client: f.Client}, nil
}

// HTTPProviderAPI talks to a provider's REST endpoints with a bearer token.
type HTTPProviderAPI struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPProviderAPI(baseURL, token string, client *http.Client) *HTTPProviderAPI {
	return &HTTPProviderAPI{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (a *HTTPProviderAPI) FetchPayEntries(ctx context.Context, since, until time.Time) ([]PayEntry, error) {
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("until", until.UTC().Format(time.RFC3339))

	var out []PayEntry
	if err := netx.GetJSON(ctx, a.client, a.baseURL+"/pay_entries?"+q.Encode(), a.token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *HTTPProviderAPI) FetchEmployees(ctx context.Context) ([]ExternalEmployee, error) {
	var out []ExternalEmployee
	if err := netx.GetJSON(ctx, a.client, a.baseURL+"/employees", a.token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *HTTPProviderAPI) FetchHires(ctx context.Context, since time.Time) ([]ExternalEmployee, error) {
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339))

	var out []ExternalEmployee
	if err := netx.GetJSON(ctx, a.client, a.baseURL+"/hires?"+q.Encode(), a.token, &out); err != nil {
		return nil, err
	}
	return out, nil
}
