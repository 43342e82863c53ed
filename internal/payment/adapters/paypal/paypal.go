package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	paymentdomain "github.com/tokomart/tokomart/internal/payment/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "paypal"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if baseURL == "" || clientID == "" || clientSecret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Adapter{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}, nil
}

type Adapter struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func (a *Adapter) Provider() string {
	return "paypal"
}

func (a *Adapter) CreateOrder(ctx context.Context, req paymentdomain.CreateOrderRequest) (string, error) {
	if req.Amount <= 0 || strings.TrimSpace(req.Currency) == "" {
		return "", paymentdomain.ErrOrderCreateFailed
	}

	token, err := a.token(ctx)
	if err != nil {
		return "", paymentdomain.ErrOrderCreateFailed
	}

	payload := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{
			{
				CustomID: fmt.Sprintf("%s:%s", req.ShopID.String(), req.ServiceType),
				Amount: amount{
					CurrencyCode: strings.ToUpper(strings.TrimSpace(req.Currency)),
					Value:        formatAmount(req.Amount),
				},
			},
		},
	}

	body, status, err := a.post(ctx, token, "/v2/checkout/orders", payload)
	if err != nil {
		return "", paymentdomain.ErrOrderCreateFailed
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return "", paymentdomain.ErrOrderCreateFailed
	}

	var order orderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return "", paymentdomain.ErrOrderCreateFailed
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return "", paymentdomain.ErrOrderCreateFailed
	}

	return orderID, nil
}

func (a *Adapter) CaptureOrder(ctx context.Context, providerOrderID string) (paymentdomain.CaptureResult, error) {
	providerOrderID = strings.TrimSpace(providerOrderID)
	if providerOrderID == "" {
		return paymentdomain.CaptureResult{}, paymentdomain.ErrInvalidSession
	}

	token, err := a.token(ctx)
	if err != nil {
		return paymentdomain.CaptureResult{}, paymentdomain.ErrCaptureTimeout
	}

	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(providerOrderID))
	body, status, err := a.post(ctx, token, path, struct{}{})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return paymentdomain.CaptureResult{}, paymentdomain.ErrCaptureTimeout
		}
		return paymentdomain.CaptureResult{}, paymentdomain.ErrCaptureTimeout
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return paymentdomain.CaptureResult{}, mapCaptureError(body)
	}

	var order orderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return paymentdomain.CaptureResult{}, paymentdomain.ErrPaymentDeclined
	}
	if !strings.EqualFold(strings.TrimSpace(order.Status), "COMPLETED") {
		return paymentdomain.CaptureResult{}, mapCaptureError(body)
	}

	capturedAmount, currency := order.capturedAmount()

	return paymentdomain.CaptureResult{
		ProviderOrderID: providerOrderID,
		Amount:          capturedAmount,
		Currency:        currency,
		PaymentMethod:   "paypal",
		PayerEmail:      strings.TrimSpace(order.Payer.EmailAddress),
		CapturedAt:      time.Now().UTC(),
	}, nil
}

// token returns a cached OAuth access token, refreshing when expired.
func (a *Adapter) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		return a.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	if strings.TrimSpace(tokenResp.AccessToken) == "" {
		return "", errors.New("empty access token")
	}

	a.accessToken = tokenResp.AccessToken
	// refresh one minute early
	a.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

	return a.accessToken, nil
}

func (a *Adapter) post(ctx context.Context, token, path string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return responseBody, resp.StatusCode, nil
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type purchaseUnit struct {
	CustomID string          `json:"custom_id,omitempty"`
	Amount   amount          `json:"amount"`
	Payments *paymentsDetail `json:"payments,omitempty"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paymentsDetail struct {
	Captures []capture `json:"captures"`
}

type capture struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	Amount            amount             `json:"amount"`
	ProcessorResponse *processorResponse `json:"processor_response,omitempty"`
}

type processorResponse struct {
	ResponseCode string `json:"response_code"`
}

type orderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	Payer         payer          `json:"payer"`
}

type payer struct {
	EmailAddress string `json:"email_address"`
}

func (o orderResponse) capturedAmount() (int64, string) {
	for _, unit := range o.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, cap := range unit.Payments.Captures {
			if !strings.EqualFold(cap.Status, "COMPLETED") {
				continue
			}
			value, err := parseAmount(cap.Amount.Value)
			if err != nil {
				continue
			}
			return value, strings.ToUpper(strings.TrimSpace(cap.Amount.CurrencyCode))
		}
	}
	return 0, ""
}

type errorResponse struct {
	Name    string        `json:"name"`
	Details []errorDetail `json:"details"`
}

type errorDetail struct {
	Issue string `json:"issue"`
}

// Processor response codes PayPal surfaces on declined captures.
const (
	processorInsufficientFunds = "5120"
	processorExpiredCard       = "5400"
)

func mapCaptureError(body []byte) error {
	var provider errorResponse
	if err := json.Unmarshal(body, &provider); err == nil {
		for _, detail := range provider.Details {
			switch strings.ToUpper(strings.TrimSpace(detail.Issue)) {
			case "ORDER_NOT_APPROVED", "PAYER_ACTION_REQUIRED":
				return paymentdomain.ErrNotApproved
			case "ORDER_ALREADY_CAPTURED":
				return paymentdomain.ErrAlreadyCaptured
			case "INSTRUMENT_DECLINED", "PAYER_CANNOT_PAY", "TRANSACTION_REFUSED":
				return paymentdomain.ErrPaymentDeclined
			case "INSUFFICIENT_FUNDS":
				return paymentdomain.ErrInsufficientFunds
			case "CARD_EXPIRED":
				return paymentdomain.ErrCardExpired
			}
		}
	}

	var order orderResponse
	if err := json.Unmarshal(body, &order); err == nil {
		for _, unit := range order.PurchaseUnits {
			if unit.Payments == nil {
				continue
			}
			for _, cap := range unit.Payments.Captures {
				if cap.ProcessorResponse == nil {
					continue
				}
				switch strings.TrimSpace(cap.ProcessorResponse.ResponseCode) {
				case processorInsufficientFunds:
					return paymentdomain.ErrInsufficientFunds
				case processorExpiredCard:
					return paymentdomain.ErrCardExpired
				}
			}
		}
	}

	return paymentdomain.ErrPaymentDeclined
}

func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// parseAmount converts a provider decimal string to minor units. Capture
// amounts are never signed; the minor-unit math assumes a non-negative value.
func parseAmount(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty amount")
	}
	if strings.HasPrefix(value, "-") || strings.HasPrefix(value, "+") {
		return 0, fmt.Errorf("signed amount %q", value)
	}

	whole, fraction, _ := strings.Cut(value, ".")
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}

	var cents int64
	if fraction != "" {
		if len(fraction) > 2 {
			fraction = fraction[:2]
		}
		for len(fraction) < 2 {
			fraction += "0"
		}
		cents, err = strconv.ParseInt(fraction, 10, 64)
		if err != nil {
			return 0, err
		}
	}

	return major*100 + cents, nil
}
