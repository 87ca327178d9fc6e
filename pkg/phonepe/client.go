package phonepe

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rahulnegi20/recolora-backend/pkg/config"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	tokenExpirySkew = 2 * time.Minute
)

var (
	errClientIDRequired     = errors.New("phonepe client id is required")
	errClientSecretRequired = errors.New("phonepe client secret is required")
	errCallbackCredsMissing = errors.New("phonepe callback credentials are required")
	errInvalidPhonePeEnv    = fmt.Errorf("phonepe environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired       = errors.New("phonepe logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://api-preprod.phonepe.com/apis/pg-sandbox",
	productionEnv: "https://api.phonepe.com/apis/pg",
}

// Client wraps the PhonePe Standard Checkout API with centralized OAuth
// token handling, logging, and error mapping.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	environment   string
	clientID      string
	clientSecret  string
	clientVersion string
	callbackHash  string
	logger        *logger.Logger

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient initializes the PhonePe wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PhonePeConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientSecret == "" {
		return nil, errClientSecretRequired
	}

	callbackUser := strings.TrimSpace(cfg.CallbackUser)
	callbackPass := strings.TrimSpace(cfg.CallbackPass)
	if callbackUser == "" || callbackPass == "" {
		return nil, errCallbackCredsMissing
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURLs[env],
		environment:   env,
		clientID:      clientID,
		clientSecret:  clientSecret,
		clientVersion: cfg.ClientVersion,
		callbackHash:  callbackCredentialHash(callbackUser, callbackPass),
		logger:        logg,
	}

	logg.Info(ctx, "phonepe client initialized")
	return c, nil
}

// Environment reports the normalized PhonePe environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateOrder opens a checkout session for the given merchant order.
func (c *Client) CreateOrder(ctx context.Context, params OrderCreateParams) (*CheckoutOrder, error) {
	if strings.TrimSpace(params.MerchantOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant order id is required")
	}
	if params.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}

	c.log(ctx, "request", "create_order", map[string]any{
		"merchant_order_id": params.MerchantOrderID,
		"amount":            params.AmountPaise,
	})

	var resp payResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/v2/pay", params.toRequest(), &resp); err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, err
	}

	order := &CheckoutOrder{
		GatewayOrderID: resp.OrderID,
		RedirectURL:    resp.RedirectURL,
		State:          enums.NormalizePhonePeState(resp.State),
		ExpireAt:       time.UnixMilli(resp.ExpireAt),
	}
	c.log(ctx, "response", "create_order", map[string]any{
		"gateway_order_id": order.GatewayOrderID,
		"state":            order.State.String(),
	})
	return order, nil
}

// GetOrderStatus queries the gateway for the current state of a merchant
// order. The raw gateway state is preserved alongside the normalized one.
func (c *Client) GetOrderStatus(ctx context.Context, merchantOrderID string) (*OrderStatus, error) {
	if strings.TrimSpace(merchantOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant order id is required")
	}

	c.log(ctx, "request", "get_order_status", map[string]any{
		"merchant_order_id": merchantOrderID,
	})

	path := fmt.Sprintf("/checkout/v2/order/%s/status", url.PathEscape(merchantOrderID))
	var resp orderStatusResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		c.log(ctx, "error", "get_order_status", map[string]any{"error": err.Error()})
		return nil, err
	}

	status := &OrderStatus{
		State:          enums.NormalizePhonePeState(resp.State),
		RawState:       resp.State,
		PaymentDetails: resp.PaymentDetails,
	}
	c.log(ctx, "response", "get_order_status", map[string]any{
		"merchant_order_id": merchantOrderID,
		"state":             status.State.String(),
		"raw_state":         status.RawState,
	})
	return status, nil
}

// ValidateCallback reports whether the webhook Authorization header matches
// the configured callback credentials. PhonePe sends SHA256(username:password)
// in lowercase hex.
func (c *Client) ValidateCallback(authorization string) bool {
	if c == nil {
		return false
	}
	received := strings.TrimSpace(strings.ToLower(authorization))
	if received == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(received), []byte(c.callbackHash)) == 1
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.ensureAccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding phonepe request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building phonepe request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "O-Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling phonepe")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading phonepe response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapAPIError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding phonepe response")
		}
	}
	return nil
}

func (c *Client) ensureAccessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Add(tokenExpirySkew).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("client_version", c.clientVersion)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building phonepe token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "requesting phonepe token")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading phonepe token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", c.mapAPIError(resp.StatusCode, raw)
	}

	var token oauthResponse
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding phonepe token response")
	}
	if token.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "phonepe token response missing access_token")
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Unix(token.ExpiresAt, 0)
	return c.accessToken, nil
}

func (c *Client) mapAPIError(status int, raw []byte) error {
	message := "phonepe request failed"
	var apiErr apiErrorResponse
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		message = fmt.Sprintf("phonepe request failed: %s", apiErr.Message)
	}

	code := domainCodeForStatus(status)
	return pkgerrors.New(code, message).WithDetails(map[string]any{
		"http_status":  status,
		"gateway_code": apiErr.Code,
	})
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"gateway":   "phonepe",
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("phonepe %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("phonepe %s", phase))
	}
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func callbackCredentialHash(user, pass string) string {
	sum := sha256.Sum256([]byte(user + ":" + pass))
	return hex.EncodeToString(sum[:])
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidPhonePeEnv
	}
}
