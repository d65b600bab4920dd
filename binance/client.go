package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/coinsim/market"
)

const (
	// RESTURL is the base URL for Binance's public REST API.
	RESTURL = "https://api.binance.com"
	// StreamURL is the base URL for Binance's public websocket streams.
	StreamURL = "wss://stream.binance.com:9443"
)

// Interval represents the kline time frame.
type Interval string

const (
	Interval1h Interval = "1h" // 1 hour
	Interval1d Interval = "1d" // 1 day
)

// maxKlineLimit is the largest page size the klines endpoint accepts.
const maxKlineLimit = 1000

// Client is a Binance REST API client. The public market-data endpoints
// used here need no authentication.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Binance REST client. An empty baseURL selects
// the production endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = RESTURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// exchangeInfoResponse mirrors GET /api/v3/exchangeInfo.
type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

// ExchangeInfo returns the full instrument universe in exchange-reported
// order.
func (c *Client) ExchangeInfo(ctx context.Context) ([]market.Instrument, error) {
	var resp exchangeInfoResponse
	if err := c.get(ctx, "/api/v3/exchangeInfo", nil, &resp); err != nil {
		return nil, err
	}

	instruments := make([]market.Instrument, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		instruments = append(instruments, market.Instrument{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Status:     s.Status,
		})
	}
	return instruments, nil
}

// DailyBars fetches daily klines for symbol from start until now.
func (c *Client) DailyBars(ctx context.Context, symbol string, start time.Time) ([]market.Bar, error) {
	return c.bars(ctx, symbol, Interval1d, start)
}

// HourlyBars fetches hourly klines for symbol from start until now.
func (c *Client) HourlyBars(ctx context.Context, symbol string, start time.Time) ([]market.Bar, error) {
	return c.bars(ctx, symbol, Interval1h, start)
}

// EarliestDailyBar returns the first daily bar at or after start, or
// ok=false if the instrument has no klines in that range.
func (c *Client) EarliestDailyBar(ctx context.Context, symbol string, start time.Time) (market.Bar, bool, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(Interval1d))
	params.Set("startTime", fmt.Sprintf("%d", start.UnixMilli()))
	params.Set("limit", "1")

	var raw [][]json.RawMessage
	if err := c.get(ctx, "/api/v3/klines", params, &raw); err != nil {
		return market.Bar{}, false, err
	}
	if len(raw) == 0 {
		return market.Bar{}, false, nil
	}

	bar, err := parseKline(raw[0])
	if err != nil {
		return market.Bar{}, false, err
	}
	return bar, true, nil
}

// bars pages through the klines endpoint until the exchange returns a
// short page, so replays longer than one page stay complete.
func (c *Client) bars(ctx context.Context, symbol string, interval Interval, start time.Time) ([]market.Bar, error) {
	var out []market.Bar
	next := start.UnixMilli()

	for {
		params := url.Values{}
		params.Set("symbol", symbol)
		params.Set("interval", string(interval))
		params.Set("startTime", fmt.Sprintf("%d", next))
		params.Set("limit", fmt.Sprintf("%d", maxKlineLimit))

		var raw [][]json.RawMessage
		if err := c.get(ctx, "/api/v3/klines", params, &raw); err != nil {
			return nil, err
		}

		for _, k := range raw {
			bar, err := parseKline(k)
			if err != nil {
				return nil, err
			}
			out = append(out, bar)
		}

		if len(raw) < maxKlineLimit {
			return out, nil
		}
		next = out[len(out)-1].Time.UnixMilli() + 1
	}
}

// CurrentPrice returns the latest traded price for symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := c.get(ctx, "/api/v3/ticker/price", params, &resp); err != nil {
		return decimal.Decimal{}, err
	}

	price, err := decimal.NewFromString(resp.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", resp.Price, err)
	}
	return price, nil
}

// TickerStats returns 24h rolling ticker statistics for every instrument.
func (c *Client) TickerStats(ctx context.Context) ([]market.TickerStats, error) {
	var resp []struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		QuoteVolume        string `json:"quoteVolume"`
	}
	if err := c.get(ctx, "/api/v3/ticker/24hr", nil, &resp); err != nil {
		return nil, err
	}

	stats := make([]market.TickerStats, 0, len(resp))
	for _, s := range resp {
		last, err := decimal.NewFromString(s.LastPrice)
		if err != nil {
			return nil, fmt.Errorf("parse lastPrice for %s: %w", s.Symbol, err)
		}
		change, err := decimal.NewFromString(s.PriceChangePercent)
		if err != nil {
			return nil, fmt.Errorf("parse priceChangePercent for %s: %w", s.Symbol, err)
		}
		vol, err := decimal.NewFromString(s.QuoteVolume)
		if err != nil {
			return nil, fmt.Errorf("parse quoteVolume for %s: %w", s.Symbol, err)
		}
		stats = append(stats, market.TickerStats{
			Symbol:             s.Symbol,
			LastPrice:          last,
			PriceChangePercent: change,
			QuoteVolume:        vol,
		})
	}
	return stats, nil
}

// get executes a GET request against path and decodes the JSON response
// into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	apiURL := c.baseURL + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseKline converts one kline array from the API into a Bar. The
// wire format mixes types: [openTime, "open", "high", "low", "close",
// "volume", closeTime, ...].
func parseKline(k []json.RawMessage) (market.Bar, error) {
	if len(k) < 6 {
		return market.Bar{}, fmt.Errorf("kline has %d fields, want at least 6", len(k))
	}

	var openTime int64
	if err := json.Unmarshal(k[0], &openTime); err != nil {
		return market.Bar{}, fmt.Errorf("parse open time: %w", err)
	}

	prices := make([]decimal.Decimal, 5)
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		var s string
		if err := json.Unmarshal(k[i+1], &s); err != nil {
			return market.Bar{}, fmt.Errorf("parse %s price: %w", names[i], err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return market.Bar{}, fmt.Errorf("parse %s price %q: %w", names[i], s, err)
		}
		prices[i] = d
	}

	return market.Bar{
		Time:   time.UnixMilli(openTime).UTC(),
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: prices[4],
	}, nil
}
