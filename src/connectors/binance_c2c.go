// REST client for the Binance C2C (P2P) endpoints used by the engine:
// ad search and order placement. Resty only, HMAC-SHA256 signed.
package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	searchAdsPath  = "/sapi/v1/c2c/ads/search"
	placeOrderPath = "/sapi/v1/c2c/orderMatch/placeOrder"

	buyTypeByMoney  = "BY_MONEY"
	originMakeTake  = "MAKE_TAKE"
	defaultBaseURL  = "https://api.binance.com"
	apiKeyHeader    = "X-MBX-APIKEY"
	contentTypeJSON = "application/json"
)

// APIError is a structural failure reported by the exchange: an error
// code/message payload instead of data.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange error %s: %s", e.Code, e.Message)
}

// C2CClient is an authenticated client for the C2C endpoints.
type C2CClient struct {
	apiKey    string
	apiSecret string
	http      *resty.Client
	now       func() time.Time
}

// NewC2CClient builds a client for the given credentials. No retries here:
// a failed fetch waits for the next loop cycle instead.
func NewC2CClient(apiKey, apiSecret, baseURL string) *C2CClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL)

	return &C2CClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      httpClient,
		now:       time.Now,
	}
}

func signQuery(query, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *C2CClient) doSignedPost(
	ctx context.Context,
	path string,
	query string,
	body interface{},
) ([]byte, error) {

	sig := signQuery(query, c.apiSecret)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, c.apiKey).
		SetHeader("Content-Type", contentTypeJSON).
		SetQueryString(query + "&signature=" + sig).
		SetBody(body).
		Post(path)

	if err != nil {
		return nil, err
	}

	return resp.Body(), nil
}

type searchAdsResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Msg     string            `json:"msg"`
	Success bool              `json:"success"`
	Total   int               `json:"total"`
	Data    []json.RawMessage `json:"data"`
}

// SearchAds pulls one page of offers. The entries come back raw so the cache
// can keep the exact payload for its change comparison. A response carrying
// an error code instead of a data list returns *APIError.
func (c *C2CClient) SearchAds(
	ctx context.Context,
	asset string,
	fiat string,
	page int,
	rows int,
	tradeType string,
) ([]json.RawMessage, int, error) {

	timestamp := c.now().UnixMilli()
	query := fmt.Sprintf(
		"asset=%s&fiat=%s&page=%d&rows=%d&tradeType=%s&timestamp=%d",
		asset, fiat, page, rows, tradeType, timestamp,
	)
	body := map[string]interface{}{
		"asset":     asset,
		"fiat":      fiat,
		"page":      page,
		"rows":      rows,
		"tradeType": tradeType,
	}

	logger.WithFields(map[string]interface{}{
		"asset":     asset,
		"fiat":      fiat,
		"page":      page,
		"rows":      rows,
		"tradeType": tradeType,
	}).Debug("SearchAds call")

	raw, err := c.doSignedPost(ctx, searchAdsPath, query, body)
	if err != nil {
		return nil, 0, err
	}

	var out searchAdsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, 0, fmt.Errorf("malformed ads/search response: %w", err)
	}

	// A structural success always carries a data list, possibly empty.
	if out.Data == nil {
		return nil, 0, &APIError{
			Code:    nonEmpty(out.Code, "N/A"),
			Message: nonEmpty(out.Msg, out.Message, "unknown error occurred"),
		}
	}

	return out.Data, out.Total, nil
}

// PlaceOrderRequest carries everything the order-match endpoint needs.
type PlaceOrderRequest struct {
	AdvOrderNumber string
	Asset          string
	FiatUnit       string
	Amount         decimal.Decimal
	MatchPrice     decimal.Decimal
	TradeType      string
}

// OrderConfirmation is the accepted-order payload, kept both decoded and raw
// so notifications can forward it untouched.
type OrderConfirmation struct {
	OrderNumber    string `json:"orderNumber"`
	AdvOrderNumber string `json:"advOrderNumber"`
	Asset          string `json:"asset"`
	FiatUnit       string `json:"fiatUnit"`
	Amount         string `json:"amount"`
	Price          string `json:"price"`
	TotalPrice     string `json:"totalPrice"`
	TradeType      string `json:"tradeType"`
	PayType        string `json:"payType"`
	BuyerNickname  string `json:"buyerNickname"`
	BuyerName      string `json:"buyerName"`

	Raw json.RawMessage `json:"-"`
}

// PlaceOrder submits a taker order against an ad. A rejection comes back as
// *APIError so the caller can record the code against the offer.
func (c *C2CClient) PlaceOrder(
	ctx context.Context,
	req PlaceOrderRequest,
) (*OrderConfirmation, error) {

	timestamp := c.now().UnixMilli()
	query := fmt.Sprintf(
		"advOrderNumber=%s&asset=%s&buyType=%s&fiatUnit=%s&timestamp=%d",
		req.AdvOrderNumber, req.Asset, buyTypeByMoney, req.FiatUnit, timestamp,
	)
	body := map[string]interface{}{
		"advOrderNumber": req.AdvOrderNumber,
		"asset":          req.Asset,
		"fiatUnit":       req.FiatUnit,
		"matchPrice":     req.MatchPrice.String(),
		"totalAmount":    req.Amount.String(),
		"tradeType":      req.TradeType,
		"buyType":        buyTypeByMoney,
		"origin":         originMakeTake,
	}

	logger.WithFields(map[string]interface{}{
		"advOrderNumber": req.AdvOrderNumber,
		"asset":          req.Asset,
		"fiatUnit":       req.FiatUnit,
		"totalAmount":    req.Amount.String(),
		"matchPrice":     req.MatchPrice.String(),
	}).Info("PlaceOrder call")

	raw, err := c.doSignedPost(ctx, placeOrderPath, query, body)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Code    string          `json:"code"`
		Msg     string          `json:"msg"`
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed placeOrder response: %w", err)
	}

	if !envelope.Success {
		return nil, &APIError{
			Code:    nonEmpty(envelope.Code, "N/A"),
			Message: nonEmpty(envelope.Msg, "unknown error occurred"),
		}
	}

	// The confirmation sits under "data"; some gateway variants inline it.
	source := raw
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		source = envelope.Data
	}

	var confirmation OrderConfirmation
	if err := json.Unmarshal(source, &confirmation); err != nil {
		return nil, fmt.Errorf("malformed placeOrder confirmation: %w", err)
	}
	confirmation.Raw = raw

	return &confirmation, nil
}

func nonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
