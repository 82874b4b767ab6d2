package totalreturn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// quoteAliases remaps tickers when the quote source uses a different code.
var quoteAliases = map[string]string{
	// "BRK.B": "BRK-B" is covered by the generic dot-to-dash rule; add
	// explicit overrides here when a source disagrees with it.
}

// cleanQuoteSymbol normalizes a raw portfolio symbol into the code the
// quote sources understand. Returns "" for anything that is not quotable.
func cleanQuoteSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" || s == "CASH" {
		return ""
	}
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return ""
	}
	if alias, ok := quoteAliases[s]; ok {
		return alias
	}
	// Quote sources use '-' where brokerage exports use '.' (BRK.B).
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "-")
	}
	return s
}

type priceFetcherOptions struct {
	Logger        *slog.Logger
	CacheTTL      time.Duration
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
	HTTPTimeout   time.Duration
	HTTPClient    HTTPDoer // Optional: inject custom client for testing
}

type priceFetcher struct {
	logger        *slog.Logger
	cacheTTL      time.Duration
	failThreshold int
	failWindow    time.Duration
	cooldown      time.Duration
	client        HTTPDoer

	// Separate locks for cache and circuit breaker to reduce contention.
	cacheMu   sync.RWMutex
	cache     map[string]cacheEntry
	circuitMu sync.Mutex
	sources   map[string]*sourceState
}

type cacheEntry struct {
	price float64
	ts    time.Time
}

type sourceState struct {
	failCount     int
	firstFailAt   time.Time
	cooldownUntil time.Time
}

func newPriceFetcher(opts priceFetcherOptions) *priceFetcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: opts.HTTPTimeout,
		}
	}
	return &priceFetcher{
		logger:        logger,
		cacheTTL:      opts.CacheTTL,
		failThreshold: opts.FailThreshold,
		failWindow:    opts.FailWindow,
		cooldown:      opts.Cooldown,
		client:        client,
		cache:         map[string]cacheEntry{},
		sources:       map[string]*sourceState{},
	}
}

// GetCurrentPrices resolves latest prices for the given raw symbols. Every
// input key gets a result; a nil price means "price unavailable". Lookup
// failures degrade per symbol and never fail the call.
func (c *Core) GetCurrentPrices(ctx context.Context, symbols []string) map[string]*float64 {
	return c.prices.getCurrentPrices(ctx, symbols)
}

func (pf *priceFetcher) getCurrentPrices(ctx context.Context, symbols []string) map[string]*float64 {
	// Clean and de-dupe while remembering which raw key maps where.
	rawToClean := make(map[string]string, len(symbols))
	var cleaned []string
	seen := map[string]struct{}{}
	for _, raw := range symbols {
		cs := cleanQuoteSymbol(raw)
		rawToClean[raw] = cs
		if cs == "" {
			continue
		}
		if _, ok := seen[cs]; !ok {
			seen[cs] = struct{}{}
			cleaned = append(cleaned, cs)
		}
	}

	resolved := map[string]float64{}
	var need []string
	for _, s := range cleaned {
		if price, ok := pf.getCached(s); ok {
			resolved[s] = price
		} else {
			need = append(need, s)
		}
	}

	if len(need) > 0 {
		pf.fetchBatch(ctx, need, resolved)
	}

	out := make(map[string]*float64, len(symbols))
	for raw, cs := range rawToClean {
		if cs == "" {
			out[raw] = nil
			continue
		}
		if price, ok := resolved[cs]; ok {
			p := price
			out[raw] = &p
		} else {
			out[raw] = nil
		}
	}
	return out
}

// fetchBatch fills resolved with prices for the missing symbols: one
// batched quote request first, then a per-symbol chart fallback for
// whatever the batch did not cover. Successes are cached; misses are not,
// so the next request retries them.
func (pf *priceFetcher) fetchBatch(ctx context.Context, need []string, resolved map[string]float64) {
	const (
		sourceQuote = "yahoo-quote"
		sourceChart = "yahoo-chart"
	)

	missing := need
	if pf.sourceAvailable(sourceQuote) {
		prices, err := pf.yahooQuoteBatch(ctx, need)
		if err != nil {
			pf.logger.Warn("batch quote request failed", "symbols", len(need), "err", err)
			pf.recordSourceFailure(sourceQuote)
		} else {
			pf.recordSourceSuccess(sourceQuote)
			missing = missing[:0]
			for _, s := range need {
				if price, ok := prices[s]; ok && price > 0 {
					resolved[s] = price
					pf.setCached(s, price)
				} else {
					missing = append(missing, s)
				}
			}
		}
	}

	for _, s := range missing {
		if !pf.sourceAvailable(sourceChart) {
			break
		}
		price, err := pf.yahooChartClose(ctx, s)
		if err != nil {
			pf.logger.Warn("chart quote request failed", "symbol", s, "err", err)
			pf.recordSourceFailure(sourceChart)
			continue
		}
		pf.recordSourceSuccess(sourceChart)
		if price != nil && *price > 0 {
			resolved[s] = *price
			pf.setCached(s, *price)
		}
	}
}

func (pf *priceFetcher) getCached(symbol string) (float64, bool) {
	pf.cacheMu.RLock()
	defer pf.cacheMu.RUnlock()
	entry, ok := pf.cache[symbol]
	if !ok {
		return 0, false
	}
	if time.Since(entry.ts) <= pf.cacheTTL {
		return entry.price, true
	}
	return 0, false
}

func (pf *priceFetcher) setCached(symbol string, price float64) {
	pf.cacheMu.Lock()
	defer pf.cacheMu.Unlock()
	pf.cache[symbol] = cacheEntry{price: price, ts: time.Now()}
}

func (pf *priceFetcher) sourceAvailable(source string) bool {
	pf.circuitMu.Lock()
	defer pf.circuitMu.Unlock()
	state, ok := pf.sources[source]
	if !ok {
		return true
	}
	return time.Now().After(state.cooldownUntil)
}

func (pf *priceFetcher) recordSourceFailure(source string) {
	pf.circuitMu.Lock()
	defer pf.circuitMu.Unlock()
	state := pf.sources[source]
	now := time.Now()
	if state == nil {
		state = &sourceState{firstFailAt: now}
		pf.sources[source] = state
	}
	if now.Sub(state.firstFailAt) > pf.failWindow {
		state.failCount = 0
		state.firstFailAt = now
	}
	state.failCount++
	if state.failCount >= pf.failThreshold {
		state.cooldownUntil = now.Add(pf.cooldown)
	}
}

func (pf *priceFetcher) recordSourceSuccess(source string) {
	pf.circuitMu.Lock()
	defer pf.circuitMu.Unlock()
	delete(pf.sources, source)
}

// yahooQuoteResponse is the shape of the v7 batched quote endpoint.
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"quoteResponse"`
}

// yahooQuoteBatch fetches regular market prices for all symbols in one
// request.
func (pf *priceFetcher) yahooQuoteBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	endpoint := fmt.Sprintf(
		"https://query1.finance.yahoo.com/v7/finance/quote?symbols=%s",
		url.QueryEscape(strings.Join(symbols, ",")),
	)
	body, err := pf.httpGet(ctx, endpoint, map[string]string{"User-Agent": "Mozilla/5.0"})
	if err != nil {
		return nil, err
	}
	var payload yahooQuoteResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(payload.QuoteResponse.Result))
	for _, result := range payload.QuoteResponse.Result {
		if result.RegularMarketPrice != nil {
			out[strings.ToUpper(result.Symbol)] = *result.RegularMarketPrice
		}
	}
	return out, nil
}

// yahooChartClose fetches a single symbol via the v8 chart endpoint,
// preferring the regular market price and falling back to the last
// non-null close.
func (pf *priceFetcher) yahooChartClose(ctx context.Context, symbol string) (*float64, error) {
	endpoint := fmt.Sprintf(
		"https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=5d",
		url.PathEscape(symbol),
	)
	body, err := pf.httpGet(ctx, endpoint, map[string]string{"User-Agent": "Mozilla/5.0"})
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	chart, _ := payload["chart"].(map[string]any)
	results, _ := chart["result"].([]any)
	if len(results) == 0 {
		return nil, nil
	}
	result, _ := results[0].(map[string]any)
	meta, _ := result["meta"].(map[string]any)
	if meta != nil {
		if price, err := parseFloat(meta["regularMarketPrice"]); err == nil && price > 0 {
			return &price, nil
		}
	}
	indicators, _ := result["indicators"].(map[string]any)
	quoteArr, _ := indicators["quote"].([]any)
	if len(quoteArr) == 0 {
		return nil, nil
	}
	quote, _ := quoteArr[0].(map[string]any)
	closes, _ := quote["close"].([]any)
	for i := len(closes) - 1; i >= 0; i-- {
		if price, err := parseFloat(closes[i]); err == nil && price > 0 {
			return &price, nil
		}
	}
	return nil, nil
}

// maxResponseSize limits external API responses to 1MB to prevent memory
// exhaustion.
const maxResponseSize = 1 << 20

func (pf *priceFetcher) httpGet(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := pf.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

func parseFloat(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, errors.New("no value")
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		if v == "" {
			return 0, errors.New("empty")
		}
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
