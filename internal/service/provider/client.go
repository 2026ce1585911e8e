package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	xhttp "BarSync/pkg/http"
)

// Client implements FetchClient against the provider's historical bars REST
// endpoint. Provider-level failures arrive as a {code, message} envelope and
// are surfaced as *models.FetchError so the pace manager can classify them.
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
}

// NewClient creates a historical bars client.
func NewClient(baseURL, apiKey string, timeout time.Duration) domrepo.FetchClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type wireBar struct {
	T int64   `json:"t"` // unix seconds
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
	W float64 `json:"w"`
	N int     `json:"n"`
	X bool    `json:"x"` // provider "no data" sentinel slot
}

type historyResponse struct {
	Symbol string    `json:"symbol"`
	Bars   []wireBar `json:"bars"`
}

type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Fetch retrieves bars for one provider-compliant segment.
func (c *Client) Fetch(ctx context.Context, symbol string, g domrepo.Granularity, r models.TimeRange) ([]models.Bar, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v1/history",
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
		},
		QueryParams: map[string][]string{
			"symbol":      {symbol},
			"granularity": {string(g)},
			"start":       {strconv.FormatInt(r.Start.Unix(), 10)},
			"end":         {strconv.FormatInt(r.End.Unix(), 10)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		var env errorEnvelope
		if jerr := json.Unmarshal(body, &env); jerr == nil && env.Code != 0 {
			return nil, &models.FetchError{Code: env.Code, Message: env.Message}
		}
		return nil, fmt.Errorf("history status %d: %s", resp.StatusCode, body)
	}

	var hr historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	bars := make([]models.Bar, 0, len(hr.Bars))
	for _, wb := range hr.Bars {
		bars = append(bars, models.Bar{
			Symbol:    symbol,
			TS:        time.Unix(wb.T, 0).UTC(),
			Open:      wb.O,
			High:      wb.H,
			Low:       wb.L,
			Close:     wb.C,
			Volume:    wb.V,
			WAP:       wb.W,
			BarCount:  wb.N,
			Synthetic: wb.X,
		})
	}
	return bars, nil
}

// Close is a no-op; the underlying client pools connections.
func (c *Client) Close() error { return nil }
