package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"forexrates/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	DefaultFunction = "CURRENCY_EXCHANGE_RATE"

	quoteKey = "Realtime Currency Exchange Rate"
	bidKey   = `8\. Bid Price`
	askKey   = `9\. Ask Price`

	// Alpha Vantage answers throttled calls with 200 and one of these keys.
	noteKey        = "Note"
	informationKey = "Information"
	errorKey       = "Error Message"

	pricePlaces = 2
)

// AlphaVantageClient fetches a realtime bid/ask quote for a currency pair.
type AlphaVantageClient struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	function string
	now      func() time.Time
}

func (c *AlphaVantageClient) Fetch(ctx context.Context, pair string) (domain.ExchangeRate, error) {
	base, quote, ok := domain.SplitPair(pair)
	if !ok {
		return domain.ExchangeRate{}, fmt.Errorf("alpha vantage: %w: %q", domain.ErrUnknownPair, pair)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("failed to parse base URL: %w: %w", domain.ErrTransport, err)
	}
	q := u.Query()
	q.Set("function", c.function)
	q.Set("from_currency", base)
	q.Set("to_currency", quote)
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("failed to create request for pair %q: %w: %w", pair, domain.ErrTransport, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("failed to execute request for pair %q: %w: %w", pair, domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ExchangeRate{}, fmt.Errorf("unexpected status code %d for pair %q: %w", resp.StatusCode, pair, domain.ErrTransport)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("failed to read response for pair %q: %w: %w", pair, domain.ErrTransport, err)
	}

	bid, ask, err := parseQuote(body)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("alpha vantage response for pair %q: %w", pair, err)
	}

	return domain.ExchangeRate{
		Pair:      base + "/" + quote,
		Bid:       bid,
		Ask:       ask,
		UpdatedAt: c.now().UTC(),
	}, nil
}

func parseQuote(body []byte) (bid, ask decimal.Decimal, err error) {
	if !gjson.ValidBytes(body) {
		return bid, ask, fmt.Errorf("%w: invalid json", domain.ErrDecode)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return bid, ask, fmt.Errorf("%w: root is not an object", domain.ErrDecode)
	}

	if msg := root.Get(errorKey); msg.Exists() {
		return bid, ask, fmt.Errorf("%w: %s", domain.ErrUnknownPair, msg.String())
	}
	for _, key := range []string{noteKey, informationKey} {
		if msg := root.Get(key); msg.Exists() {
			return bid, ask, fmt.Errorf("%w: throttled: %s", domain.ErrTransport, msg.String())
		}
	}

	record := root.Get(quoteKey)
	if !record.Exists() || record.Type == gjson.Null {
		return bid, ask, fmt.Errorf("%w: no quote record", domain.ErrUnknownPair)
	}
	if !record.IsObject() {
		return bid, ask, fmt.Errorf("%w: quote record is not an object", domain.ErrDecode)
	}

	if bid, err = parsePrice(record, bidKey, "bid"); err != nil {
		return bid, ask, err
	}
	if ask, err = parsePrice(record, askKey, "ask"); err != nil {
		return bid, ask, err
	}
	return bid, ask, nil
}

func parsePrice(record gjson.Result, path, name string) (decimal.Decimal, error) {
	raw := record.Get(path).String()
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: %s is missing", domain.ErrMalformedQuote, name)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q: %v", domain.ErrMalformedQuote, name, raw, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive, got %s", domain.ErrMalformedQuote, name, raw)
	}
	rounded := price.RoundBank(pricePlaces)
	if !rounded.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s %s rounds to zero", domain.ErrMalformedQuote, name, raw)
	}
	return rounded, nil
}

// NewAlphaVantageClient builds a provider client. An empty function falls back
// to DefaultFunction.
func NewAlphaVantageClient(httpClient *http.Client, baseURL, apiKey, function string) *AlphaVantageClient {
	if function == "" {
		function = DefaultFunction
	}
	return &AlphaVantageClient{
		http:     httpClient,
		baseURL:  baseURL,
		apiKey:   apiKey,
		function: function,
		now:      time.Now,
	}
}
