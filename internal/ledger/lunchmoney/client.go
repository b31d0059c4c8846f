// Package lunchmoney implements the ledger contract against the Lunch Money v1 REST API.
package lunchmoney

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rumor-ml/commons.systems/stmtsync/internal/domain"
	"github.com/rumor-ml/commons.systems/stmtsync/internal/ledger"
)

// DefaultBaseURL is the production API root
const DefaultBaseURL = "https://dev.lunchmoney.app/v1"

const assetsKey = "assets"

// Config configures a Client
type Config struct {
	BaseURL     string
	AccessToken string

	// RequestsPerSecond paces calls. Zero or negative disables pacing.
	RequestsPerSecond float64

	// HTTPClient defaults to a client with a 30 second timeout
	HTTPClient *http.Client
}

var _ ledger.Ledger = (*Client)(nil)

// Client talks to Lunch Money. Failed calls are returned, never retried.
// The asset list is fetched once and memoised for the client's lifetime.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	assets  *cache.Cache
	log     logrus.FieldLogger
}

// New creates a client
func New(cfg Config, log logrus.FieldLogger) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("lunch money access token is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL: baseURL,
		token:   cfg.AccessToken,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		assets:  cache.New(cache.NoExpiration, 0),
		log:     log,
	}, nil
}

type asset struct {
	ID              int64  `json:"id"`
	TypeName        string `json:"type_name"`
	Name            string `json:"name"`
	DisplayName     string `json:"display_name"`
	Currency        string `json:"currency"`
	InstitutionName string `json:"institution_name"`
}

type assetsResponse struct {
	Assets []asset `json:"assets"`
}

// ListAccounts returns the user's manually managed assets.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if cached, ok := c.assets.Get(assetsKey); ok {
		return cached.([]domain.Account), nil
	}

	var resp assetsResponse
	if err := c.do(ctx, http.MethodGet, "/assets", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	accounts := make([]domain.Account, 0, len(resp.Assets))
	for _, a := range resp.Assets {
		name := a.Name
		if name == "" {
			name = a.DisplayName
		}
		acc, err := domain.NewAccount(a.ID, name, a.Currency, a.InstitutionName, domain.AccountType(a.TypeName))
		if err != nil {
			c.log.WithError(err).WithField("asset", a.ID).Warn("Skipping malformed asset")
			continue
		}
		accounts = append(accounts, *acc)
	}

	c.assets.Set(assetsKey, accounts, cache.NoExpiration)
	c.log.WithField("count", len(accounts)).Debug("Fetched ledger assets")
	return accounts, nil
}

type insertObject struct {
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency,omitempty"`
	AssetID    int64  `json:"asset_id"`
	ExternalID string `json:"external_id"`
	Notes      string `json:"notes"`
	Payee      string `json:"payee"`
}

type insertBody struct {
	Transactions      []insertObject `json:"transactions"`
	ApplyRules        bool           `json:"apply_rules"`
	SkipDuplicates    bool           `json:"skip_duplicates"`
	DebitAsNegative   bool           `json:"debit_as_negative"`
	SkipBalanceUpdate bool           `json:"skip_balance_update"`
}

type insertResponse struct {
	IDs []int64 `json:"ids"`
}

// InsertTransaction posts a single transaction and returns the ids Lunch Money created.
func (c *Client) InsertTransaction(ctx context.Context, req ledger.InsertRequest) ([]int64, error) {
	body := insertBody{
		Transactions: []insertObject{{
			Date:       req.Date,
			Amount:     req.Amount.String(),
			Currency:   req.Currency,
			AssetID:    req.AccountID,
			ExternalID: req.ExternalID,
			Notes:      req.Notes,
			Payee:      req.Payee,
		}},
		ApplyRules:        req.ApplyRules,
		SkipDuplicates:    req.SkipDuplicates,
		DebitAsNegative:   req.DebitAsNegative,
		SkipBalanceUpdate: req.SkipBalanceUpdate,
	}

	var resp insertResponse
	if err := c.do(ctx, http.MethodPost, "/transactions", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", req.ExternalID, err)
	}
	return resp.IDs, nil
}

// apiError is the error envelope; "error" is a string or a list of strings.
type apiError struct {
	Error json.RawMessage `json:"error"`
}

func (e apiError) message() string {
	if len(e.Error) == 0 || string(e.Error) == "null" {
		return ""
	}
	var single string
	if err := json.Unmarshal(e.Error, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(e.Error, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return string(e.Error)
}

// do sends one paced request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept", "application/json")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var apiErr apiError
	_ = json.Unmarshal(data, &apiErr)
	if msg := apiErr.message(); msg != "" {
		return fmt.Errorf("%s %s: %s (status %d)", method, path, msg, httpResp.StatusCode)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, httpResp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
