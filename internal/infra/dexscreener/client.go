package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
	"github.com/NasaVasa/pairalert/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const apiName = "dexscreener"

type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, rps float64, logger *zap.Logger) *Client {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// SearchPairs returns pairs matching query in provider order. No match yields an empty slice.
func (c *Client) SearchPairs(ctx context.Context, query string) ([]domain.Pair, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, url.QueryEscape(query))
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")

	start := time.Now()
	c.logger.Debug("dexscreener request start", zap.String("query", query), zap.String("url", endpoint))
	response, err := c.client.Do(request)
	if err != nil {
		metrics.RecordAPIRequest(apiName, "search", time.Since(start), err)
		c.logger.Error("dexscreener request failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	defer response.Body.Close()

	c.logger.Info(
		"dexscreener request complete",
		zap.String("query", query),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		err := fmt.Errorf("dexscreener error: status %d", response.StatusCode)
		metrics.RecordAPIRequest(apiName, "search", time.Since(start), err)
		return nil, err
	}

	var payload searchResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		metrics.RecordAPIRequest(apiName, "search", time.Since(start), err)
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	metrics.RecordAPIRequest(apiName, "search", time.Since(start), nil)

	pairs := make([]domain.Pair, 0, len(payload.Pairs))
	for _, p := range payload.Pairs {
		pairs = append(pairs, p.toDomain())
	}
	return pairs, nil
}

// FetchMetric looks the pair up by address and returns the requested metric.
func (c *Client) FetchMetric(ctx context.Context, pairAddress string, metric domain.Metric) (float64, error) {
	if metric != domain.MetricMarketCap {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnsupportedMetric, metric)
	}

	pairs, err := c.SearchPairs(ctx, pairAddress)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMetricUnavailable, err)
	}
	for _, p := range pairs {
		if !strings.EqualFold(p.PairAddress, pairAddress) {
			continue
		}
		if p.MarketCap == nil {
			return 0, fmt.Errorf("%w: no market cap for %s", domain.ErrMetricUnavailable, pairAddress)
		}
		return *p.MarketCap, nil
	}
	return 0, fmt.Errorf("%w: pair %s not found", domain.ErrMetricUnavailable, pairAddress)
}
