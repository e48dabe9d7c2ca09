// Package mpesa is the Safaricom Daraja STK push client.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"cashloan-backend/internal/domain/gateway"

	"github.com/shopspring/decimal"
)

const (
	tokenPath       = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath        = "/mpesa/stkpush/v1/processrequest"
	transactionType = "CustomerPayBillOnline"
	timestampLayout = "20060102150405"
	defaultTimeout  = 10 * time.Second
)

var (
	MinAmount = decimal.NewFromInt(1)
	MaxAmount = decimal.NewFromInt(70000)

	phonePattern = regexp.MustCompile(`^(?:254|\+254|0)?(7\d{8})$`)

	// timestamps are signed in East Africa Time
	eat = time.FixedZone("EAT", 3*60*60)
)

var _ gateway.PushGateway = (*Client)(nil)

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Timeout        time.Duration
}

func (c Config) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"base url": c.BaseURL, "consumer key": c.ConsumerKey, "consumer secret": c.ConsumerSecret,
		"short code": c.ShortCode, "passkey": c.Passkey, "callback url": c.CallbackURL,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("mpesa config missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

type Client struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, now: time.Now}, nil
}

// NormalizePhone converts 07XXXXXXXX, 2547XXXXXXXX and +2547XXXXXXXX to 2547XXXXXXXX.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", fmt.Errorf("%w: invalid phone number format", gateway.ErrInvalidRequest)
	}
	return phonePattern.ReplaceAllString(phone, "254$1"), nil
}

func validateAmount(amount decimal.Decimal) (int64, error) {
	if amount.LessThan(MinAmount) || amount.GreaterThan(MaxAmount) {
		return 0, fmt.Errorf("%w: amount must be between %s and %s", gateway.ErrInvalidRequest, MinAmount, MaxAmount)
	}
	if !amount.Equal(amount.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount must be a whole number", gateway.ErrInvalidRequest)
	}
	return amount.IntPart(), nil
}

type pushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type pushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type errorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// Initiate validates the request, fetches a fresh token and submits the push.
// It never retries; the caller decides whether to try again.
func (c *Client) Initiate(ctx context.Context, req gateway.PushRequest) (*gateway.PushResult, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	amount, err := validateAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if req.AccountReference == "" {
		return nil, fmt.Errorf("%w: account reference is required", gateway.ErrInvalidRequest)
	}
	desc := req.Description
	if desc == "" {
		desc = "Payment"
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	ts := c.now().In(eat).Format(timestampLayout)
	body, err := json.Marshal(pushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   desc,
	})
	if err != nil {
		return nil, &gateway.Error{Op: "push", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+pushPath, bytes.NewReader(body))
	if err != nil {
		return nil, &gateway.Error{Op: "push", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	var out pushResponse
	if err := c.do(httpReq, "push", &out); err != nil {
		return nil, err
	}
	if out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		return nil, &gateway.Error{Op: "push", StatusCode: http.StatusOK, Code: out.ResponseCode, Message: out.ResponseDescription}
	}
	return &gateway.PushResult{
		CorrelationID:     out.CheckoutRequestID,
		ProviderRequestID: out.MerchantRequestID,
		Phone:             phone,
	}, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", &gateway.Error{Op: "auth", Err: err}
	}
	httpReq.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	var out tokenResponse
	if err := c.do(httpReq, "auth", &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &gateway.Error{Op: "auth", StatusCode: http.StatusOK, Message: "no access token in response"}
	}
	return out.AccessToken, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return &gateway.Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &gateway.Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorMessage != "" {
			return &gateway.Error{Op: op, StatusCode: resp.StatusCode, Code: apiErr.ErrorCode, Message: apiErr.ErrorMessage}
		}
		return &gateway.Error{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &gateway.Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
