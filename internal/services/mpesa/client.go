package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"school-fees-backend/internal/config"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"
)

// Client is a thin wrapper over the Daraja STK-push API.
type Client struct {
	cfg  config.MpesaConfig
	http *http.Client
	log  *logrus.Logger
}

func NewClient(cfg config.MpesaConfig, log *logrus.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

func (c *Client) baseURL() string {
	if c.cfg.Environment == "sandbox" {
		return sandboxBaseURL
	}
	return productionBaseURL
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "request access token")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("access token request returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "decode access token")
	}
	return body.AccessToken, nil
}

// password builds the API password: base64(shortcode + passkey + timestamp).
func (c *Client) password(t time.Time) (string, string) {
	timestamp := t.Format("20060102150405")
	raw := c.cfg.BusinessShortCode + c.cfg.Passkey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw)), timestamp
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiateSTKPush prompts the payer's phone for the amount. accountReference
// follows the SHORTCODE#STUDENT_ID convention so statement extraction can
// round-trip it later.
func (c *Client) InitiateSTKPush(ctx context.Context, phone string, amount decimal.Decimal, accountReference, description string) (*STKPushResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	password, timestamp := c.password(time.Now())

	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.BusinessShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount.IntPart(),
		"PartyA":            phone,
		"PartyB":            c.cfg.BusinessShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  accountReference,
		"TransactionDesc":   description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "stk push request")
	}
	defer resp.Body.Close()

	var out STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode stk push response")
	}
	if out.ResponseCode != "0" {
		return &out, errors.Errorf("stk push rejected: %s", out.ResponseDescription)
	}
	return &out, nil
}
