// Package ups talks to the carrier: OAuth token exchange, shipment
// submission and response normalization across the carrier's known
// envelope variants.
package ups

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	v1 "github.com/christianberko/orobor-website/api/v1"
	"github.com/christianberko/orobor-website/core/validator"
)

const defaultTimeout = 15 * time.Second

// Config carries carrier credentials and endpoints. It is injected at
// construction; nothing in this package reads ambient state.
type Config struct {
	ClientID       string
	ClientSecret   string
	BaseURL        string
	OAuthURL       string
	TransactionSrc string
	Timeout        time.Duration
}

// OrderSaver persists an order derived from a successful label. Save
// failures are logged by the client and never surface to the caller:
// the carrier issued the label whether or not the local copy stuck.
type OrderSaver interface {
	Save(req *v1.ShipmentRequest, label v1.LabelResult) (v1.OrderRecord, error)
}

type eventPublisher interface {
	PublishEvent(topic string, data any) error
}

type Client struct {
	cfg    Config
	httpc  *http.Client
	log    *slog.Logger
	orders OrderSaver
	events eventPublisher
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.TransactionSrc == "" {
		cfg.TransactionSrc = "orobor-web"
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
		log:   log,
	}
}

// WithOrderSaver attaches best-effort order persistence.
func (c *Client) WithOrderSaver(s OrderSaver) *Client {
	c.orders = s
	return c
}

// WithEventPublisher attaches best-effort LabelCreated publishing.
func (c *Client) WithEventPublisher(p eventPublisher) *Client {
	c.events = p
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   string `json:"expires_in"`
}

// ObtainToken performs a client-credentials exchange against the
// carrier's OAuth endpoint. Tokens are not cached; every label creation
// re-authenticates.
func (c *Client) ObtainToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "shipment")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Err: err}
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", &AuthError{Status: resp.StatusCode, Body: string(body), Err: err}
	}
	if token.AccessToken == "" {
		return "", &AuthError{Status: resp.StatusCode, Body: string(body), Err: fmt.Errorf("token response has no access_token")}
	}
	return token.AccessToken, nil
}

// CreateLabel validates the request, authenticates with the carrier,
// submits the shipment and normalizes the reply. The raw payload is
// forwarded to the carrier unchanged so fields this service does not
// model still go through. On success the order is persisted and a
// LabelCreated event published, both best-effort.
func (c *Client) CreateLabel(ctx context.Context, payload []byte) (v1.LabelResult, error) {
	// Validation runs before any network call so a malformed request
	// never costs an OAuth round trip.
	var req v1.ShipmentRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return v1.LabelResult{}, &ValidationError{Fields: map[string]string{
			"ShipmentRequest": "must be valid JSON",
		}}
	}
	v := validator.New()
	v1.ValidateShipmentRequest(v, &req)
	if !v.Valid() {
		return v1.LabelResult{}, &ValidationError{Fields: v.Errors}
	}

	token, err := c.ObtainToken(ctx)
	if err != nil {
		return v1.LabelResult{}, err
	}

	shipURL := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/v1/ship?additionaladdressvalidation=city"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, shipURL, bytes.NewReader(payload))
	if err != nil {
		return v1.LabelResult{}, &CarrierError{Message: "building shipment request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("transId", uuid.NewString())
	httpReq.Header.Set("transactionSrc", c.cfg.TransactionSrc)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return v1.LabelResult{}, &CarrierError{Message: "reaching the carrier", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return v1.LabelResult{}, &CarrierError{Message: "reading carrier response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return v1.LabelResult{}, &CarrierError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("carrier returned status %d", resp.StatusCode),
			Body:    string(raw),
		}
	}

	label, err := decodeResponse(raw)
	if err != nil {
		if unrec, ok := err.(*UnrecognizedShapeError); ok {
			c.log.Error("unrecognized carrier response", "body", string(unrec.Raw))
		}
		return v1.LabelResult{}, err
	}

	c.saveOrder(&req, label)
	return label, nil
}

// saveOrder is fire-and-forget relative to the caller: its outcome is
// observable only through logs.
func (c *Client) saveOrder(req *v1.ShipmentRequest, label v1.LabelResult) {
	if c.orders == nil {
		return
	}

	record, err := c.orders.Save(req, label)
	if err != nil {
		c.log.Error("saving order failed", "tracking_number", label.TrackingNumber, "error", err)
		return
	}
	c.log.Info("order saved", "order_id", record.ID, "tracking_number", record.TrackingNumber)

	if c.events == nil {
		return
	}
	event := v1.LabelCreated{
		Header: v1.NewHeader(),
		Order:  record,
		Label:  label,
	}
	if err := c.events.PublishEvent("LabelCreated", event); err != nil {
		c.log.Error("publishing LabelCreated failed", "order_id", record.ID, "error", err)
	}
}
