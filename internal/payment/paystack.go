package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/arzan03/coursehub/internal/httpx"
)

const DefaultBaseURL = "https://api.paystack.co"

// InitRequest starts a hosted checkout. Amount is in minor units.
type InitRequest struct {
	Email       string                 `json:"email"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency,omitempty"`
	Reference   string                 `json:"reference"`
	CallbackURL string                 `json:"callback_url,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Checkout is the hosted payment page for a new transaction.
type Checkout struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Verification is the gateway's view of a transaction.
type Verification struct {
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	GatewayResponse string `json:"gateway_response"`
	PaidAt          string `json:"paid_at"`
}

func (v *Verification) Succeeded() bool {
	return v.Status == "success"
}

// Event is a webhook notification.
type Event struct {
	Event string       `json:"event"`
	Data  Verification `json:"data"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Paystack talks to the Paystack transaction API.
type Paystack struct {
	secret  string
	baseURL string
	client  *http.Client
	retry   httpx.RetryConfig
}

// NewPaystack creates a Paystack client. An empty baseURL uses the live API.
func NewPaystack(secret, baseURL string, client *http.Client) *Paystack {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Paystack{
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		retry:   httpx.DefaultRetryConfig(),
	}
}

func (p *Paystack) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.secret}
}

func (p *Paystack) call(ctx context.Context, method, path string, payload, out interface{}, retry httpx.RetryConfig) error {
	var env envelope
	err := httpx.DoJSON(ctx, p.client, httpx.JSONRequest(method, p.baseURL+path, payload, p.headers()), &env, retry)
	if err != nil {
		return errors.Wrap(err, "paystack")
	}
	if !env.Status {
		return errors.Errorf("paystack: %s", env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, "paystack: decoding data")
	}
	return nil
}

// Initialize creates a transaction and returns the hosted payment page. It is
// sent once: a repeat with the same reference is rejected as a duplicate.
func (p *Paystack) Initialize(ctx context.Context, req InitRequest) (*Checkout, error) {
	var out Checkout
	if err := p.call(ctx, http.MethodPost, "/transaction/initialize", req, &out, httpx.NoRetry()); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify fetches the final state of the transaction identified by reference.
func (p *Paystack) Verify(ctx context.Context, reference string) (*Verification, error) {
	var out Verification
	if err := p.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &out, p.retry); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySignature checks the x-paystack-signature header of a webhook body.
func (p *Paystack) VerifySignature(body []byte, signature string) bool {
	return ValidSignature(p.secret, body, signature)
}

// ValidSignature reports whether signature is the hex HMAC-SHA512 of body under secret.
func ValidSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, errors.Wrap(err, "decoding paystack event")
	}
	return &ev, nil
}
