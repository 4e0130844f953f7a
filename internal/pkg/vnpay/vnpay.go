// Package vnpay builds signed VNPay checkout URLs and verifies the gateway's callbacks.
package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fieldbooking/internal/domain"
)

const (
	version    = "2.1.0"
	command    = "pay"
	currency   = "VND"
	orderType  = "other"
	timeLayout = "20060102150405"

	hashParam     = "vnp_SecureHash"
	hashTypeParam = "vnp_SecureHashType"

	codeSuccess = "00"
)

type Config struct {
	TmnCode     string
	HashSecret  string
	BaseURL     string
	ReturnURL   string
	ExpireAfter time.Duration
	// Location is used for vnp_CreateDate/vnp_ExpireDate and to read vnp_PayDate. VNPay expects GMT+7.
	Location *time.Location
}

type Client struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Client {
	if cfg.ExpireAfter <= 0 {
		cfg.ExpireAfter = 15 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.FixedZone("ICT", 7*60*60)
	}
	return &Client{cfg: cfg, now: time.Now}
}

// CreatePayment returns the checkout URL for req. Amounts are sent in VND x 100.
func (c *Client) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.cfg.TmnCode == "" || c.cfg.HashSecret == "" || c.cfg.BaseURL == "" {
		return nil, errors.New("vnpay is not configured")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid amount %d", req.Amount)
	}

	now := c.now().In(c.cfg.Location)
	ip := req.ClientIP
	if ip == "" {
		ip = "127.0.0.1"
	}

	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", command)
	params.Set("vnp_TmnCode", c.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(req.Amount*100, 10))
	params.Set("vnp_CurrCode", currency)
	params.Set("vnp_TxnRef", req.TxnRef)
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", orderType)
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_ReturnUrl", c.cfg.ReturnURL)
	params.Set("vnp_IpAddr", ip)
	params.Set("vnp_CreateDate", now.Format(timeLayout))
	params.Set("vnp_ExpireDate", now.Add(c.cfg.ExpireAfter).Format(timeLayout))

	query := params.Encode()
	return &domain.PaymentLink{
		Reference:  req.TxnRef,
		PaymentURL: c.cfg.BaseURL + "?" + query + "&" + hashParam + "=" + c.sign(query),
	}, nil
}

// VerifyCallback checks the signature of a return or IPN query and decodes it.
// It does not modify query.
func (c *Client) VerifyCallback(query url.Values) (*domain.GatewayCallback, error) {
	given := query.Get(hashParam)
	if given == "" {
		return nil, domain.ErrInvalidSignature
	}

	signed := url.Values{}
	for k, v := range query {
		if k == hashParam || k == hashTypeParam || !strings.HasPrefix(k, "vnp_") {
			continue
		}
		signed[k] = v
	}
	expected := c.sign(signed.Encode())
	if !hmac.Equal([]byte(strings.ToLower(given)), []byte(expected)) {
		return nil, domain.ErrInvalidSignature
	}

	amount, err := strconv.ParseInt(query.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid vnp_Amount: %w", err)
	}

	cb := &domain.GatewayCallback{
		GatewayTxnID: query.Get("vnp_TransactionNo"),
		TxnRef:       query.Get("vnp_TxnRef"),
		Amount:       amount / 100,
		ResponseCode: query.Get("vnp_ResponseCode"),
		RawQuery:     query.Encode(),
	}
	cb.Success = cb.ResponseCode == codeSuccess && query.Get("vnp_TransactionStatus") == codeSuccess
	if pd := query.Get("vnp_PayDate"); pd != "" {
		if t, err := time.ParseInLocation(timeLayout, pd, c.cfg.Location); err == nil {
			utc := t.UTC()
			cb.PaidAt = &utc
		}
	}
	return cb, nil
}

// Sign exposes the HMAC used for query so callers can build test callbacks.
func (c *Client) Sign(query url.Values) string {
	return c.sign(query.Encode())
}

func (c *Client) sign(data string) string {
	h := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
