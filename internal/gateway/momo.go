// Package gateway holds clients for external payment providers.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MomoConfig carries the MoMo merchant credentials and callback URLs.
type MomoConfig struct {
	Endpoint    string
	PartnerCode string
	AccessKey   string
	SecretKey   string
	RedirectURL string
	IPNURL      string
}

// MomoClient talks to the MoMo create-payment API. It implements the
// checkout gateway contract used by the payment service.
type MomoClient struct {
	cfg  MomoConfig
	http *http.Client
}

func NewMomoClient(cfg MomoConfig) *MomoClient {
	return &MomoClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	Signature   string `json:"signature"`
	Lang        string `json:"lang"`
}

type momoCreateResponse struct {
	PayURL     string `json:"payUrl"`
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
}

// CreateQR requests a captureWallet payment and returns the pay URL
// the user scans. The request is signed with HMAC-SHA256 over the
// alphabetically ordered parameter string, per the MoMo v2 API.
func (c *MomoClient) CreateQR(ctx context.Context, amount int64, orderID string) (string, error) {
	const (
		orderInfo   = "Deposit Payment"
		requestType = "captureWallet"
	)
	requestID := orderID

	raw := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&requestId=%s&requestType=%s",
		c.cfg.AccessKey, amount, c.cfg.IPNURL, orderID, orderInfo, c.cfg.PartnerCode, requestID, requestType,
	)
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(raw))
	signature := hex.EncodeToString(mac.Sum(nil))

	body, err := json.Marshal(momoCreateRequest{
		PartnerCode: c.cfg.PartnerCode,
		AccessKey:   c.cfg.AccessKey,
		RequestID:   requestID,
		Amount:      amount,
		OrderID:     orderID,
		OrderInfo:   orderInfo,
		RedirectURL: c.cfg.RedirectURL,
		IPNURL:      c.cfg.IPNURL,
		RequestType: requestType,
		Signature:   signature,
		Lang:        "vi",
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("momo request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.ResultCode != 0 || out.PayURL == "" {
		return "", fmt.Errorf("momo rejected payment: code=%d message=%s", out.ResultCode, out.Message)
	}
	return out.PayURL, nil
}
