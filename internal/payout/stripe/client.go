package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/salasbeats/marketplace/internal/config"
	hostdomain "github.com/salasbeats/marketplace/internal/host/domain"
	"github.com/salasbeats/marketplace/internal/payout/domain"
)

// Client talks to the Stripe REST API with form-encoded requests. It covers
// only the calls the marketplace makes: connected accounts, payouts and
// refunds.
type Client struct {
	httpClient    *http.Client
	log           *zap.Logger
	baseURL       string
	secretKey     string
	webhookSecret string
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		log:           log.Named("payout.stripe"),
		baseURL:       strings.TrimRight(cfg.PaymentAPIBaseURL, "/"),
		secretKey:     cfg.PaymentSecretKey,
		webhookSecret: cfg.PaymentWebhookSecret,
	}
}

type apiError struct {
	Err struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type payoutResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	ArrivalDate    int64  `json:"arrival_date"`
	FailureMessage string `json:"failure_message"`
}

type accountResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// toCents converts the dollar-decimal amounts used internally to the
// integer minor units the API expects.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (c *Client) CreatePayout(ctx context.Context, accountRef string, amount float64, currency string) (*domain.ProviderPayout, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(toCents(amount), 10))
	form.Set("currency", currency)

	var resp payoutResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payouts", accountRef, form, &resp); err != nil {
		return nil, err
	}

	payout := &domain.ProviderPayout{
		ID:       resp.ID,
		Status:   resp.Status,
		Currency: resp.Currency,
	}
	if resp.ArrivalDate > 0 {
		arrival := time.Unix(resp.ArrivalDate, 0).UTC()
		payout.ArrivalDate = &arrival
	}
	return payout, nil
}

func (c *Client) CreateRefund(ctx context.Context, paymentRef string, amount float64) (string, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentRef)
	form.Set("amount", strconv.FormatInt(toCents(amount), 10))

	var resp refundResponse
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", "", form, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) CreateAccount(ctx context.Context, email, country string) (*hostdomain.AccountInfo, error) {
	form := url.Values{}
	form.Set("type", "express")
	form.Set("email", email)
	if country != "" {
		form.Set("country", country)
	}

	var resp accountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/accounts", "", form, &resp); err != nil {
		return nil, err
	}
	return accountInfo(resp), nil
}

func (c *Client) RetrieveAccount(ctx context.Context, accountRef string) (*hostdomain.AccountInfo, error) {
	var resp accountResponse
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+url.PathEscape(accountRef), "", nil, &resp); err != nil {
		return nil, err
	}
	return accountInfo(resp), nil
}

func accountInfo(resp accountResponse) *hostdomain.AccountInfo {
	return &hostdomain.AccountInfo{
		Ref:              resp.ID,
		ChargesEnabled:   resp.ChargesEnabled,
		PayoutsEnabled:   resp.PayoutsEnabled,
		DetailsSubmitted: resp.DetailsSubmitted,
	}
}

func (c *Client) do(ctx context.Context, method, path, onBehalfOf string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if onBehalfOf != "" {
		req.Header.Set("Stripe-Account", onBehalfOf)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Err.Message != "" {
			c.log.Warn("stripe api error",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.String("code", apiErr.Err.Code),
			)
			return fmt.Errorf("stripe: %s (%s)", apiErr.Err.Message, apiErr.Err.Type)
		}
		return fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}
	return json.Unmarshal(payload, out)
}
