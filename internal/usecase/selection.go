package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
	"github.com/NasaVasa/pairalert/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxCandidates    = 4
	maxReplyAttempts = 3
	cancelToken      = "cancel"

	DefaultReplyTimeout = 60 * time.Second
)

var ErrSelectionAborted = errors.New("selection aborted")

// metricSynonyms maps accepted replies to a metric. Matching is case-sensitive.
var metricSynonyms = map[string]domain.Metric{
	"1":          domain.MetricMarketCap,
	"market cap": domain.MetricMarketCap,
	"marketcap":  domain.MetricMarketCap,
	"market_cap": domain.MetricMarketCap,
	"mcap":       domain.MetricMarketCap,
	"market":     domain.MetricMarketCap,
}

// Selection is a fully resolved alert request.
type Selection struct {
	Pair      domain.Pair
	Metric    domain.Metric
	Direction domain.Direction
	Threshold decimal.Decimal
}

type replyOutcome string

const (
	outcomeResolved  replyOutcome = "resolved"
	outcomeCancelled replyOutcome = "cancelled"
	outcomeExhausted replyOutcome = "exhausted"
	outcomeTimedOut  replyOutcome = "timeout"
)

// Selector runs the guided dialogue that turns a free-text query into a Selection.
type Selector struct {
	market       domain.MarketData
	replyTimeout time.Duration
	logger       *zap.Logger
}

func NewSelector(market domain.MarketData, replyTimeout time.Duration, logger *zap.Logger) *Selector {
	if replyTimeout <= 0 {
		replyTimeout = DefaultReplyTimeout
	}
	return &Selector{market: market, replyTimeout: replyTimeout, logger: logger}
}

// Select resolves a pair, then a metric, direction and threshold. Every abort
// is reported to the user and returned as an error wrapping ErrSelectionAborted.
func (s *Selector) Select(ctx context.Context, conv domain.Conversation, query string) (*Selection, error) {
	pair, err := s.SelectPair(ctx, conv, query)
	if err != nil {
		return nil, err
	}

	metric, err := s.selectMetric(ctx, conv, pair)
	if err != nil {
		return nil, err
	}

	direction, threshold, err := s.selectThreshold(ctx, conv, metric)
	if err != nil {
		return nil, err
	}

	return &Selection{Pair: pair, Metric: metric, Direction: direction, Threshold: threshold}, nil
}

// SelectPair searches for query and lets the user pick one of the first few results.
func (s *Selector) SelectPair(ctx context.Context, conv domain.Conversation, query string) (domain.Pair, error) {
	pairs, err := s.market.SearchPairs(ctx, query)
	if err != nil {
		s.logger.Warn("pair search failed", zap.String("query", query), zap.Error(err))
	}
	if len(pairs) == 0 {
		s.say(ctx, conv, fmt.Sprintf("No pairs found for `%s`.", query))
		metrics.RecordSelection("pair", "no_pairs")
		return domain.Pair{}, fmt.Errorf("%w: %w", ErrSelectionAborted, domain.ErrNoPairs)
	}

	if len(pairs) == 1 {
		pair := pairs[0]
		s.say(ctx, conv, fmt.Sprintf("Selected pair: %s on %s.", pair.Symbol(), pair.DexID))
		metrics.RecordSelection("pair", "auto")
		return pair, nil
	}

	candidates := pairs
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	s.say(ctx, conv, fmt.Sprintf("Please select a pair from the list by replying with a number from 1 to %d, or `cancel`:", len(candidates)))
	for i, pair := range candidates {
		s.say(ctx, conv, fmt.Sprintf("%d. %s\n%s", i+1, pair.Symbol(), s.market.Render(pair)))
	}

	index, outcome, err := negotiate(ctx, s, conv, prompt[int]{
		stage: "pair",
		retry: fmt.Sprintf("Invalid selection. Reply with a number from 1 to %d, or `cancel`.", len(candidates)),
		parse: func(reply string) (int, bool) {
			if !isDigits(reply) {
				return 0, false
			}
			n, err := strconv.Atoi(reply)
			if err != nil || n < 1 || n > len(candidates) {
				return 0, false
			}
			return n - 1, true
		},
	})
	if err != nil {
		return domain.Pair{}, err
	}
	if outcome != outcomeResolved {
		return domain.Pair{}, aborted("pair", outcome)
	}

	pair := candidates[index]
	s.say(ctx, conv, fmt.Sprintf("Selected pair: %s on %s.", pair.Symbol(), pair.DexID))
	return pair, nil
}

func (s *Selector) selectMetric(ctx context.Context, conv domain.Conversation, pair domain.Pair) (domain.Metric, error) {
	s.say(ctx, conv, fmt.Sprintf("Which metric should I watch for %s?\n1. market cap\nReply with the number or name, or `cancel`.", pair.Symbol()))

	metric, outcome, err := negotiate(ctx, s, conv, prompt[domain.Metric]{
		stage: "metric",
		retry: "Unknown metric. Reply `1` for market cap, or `cancel`.",
		parse: func(reply string) (domain.Metric, bool) {
			metric, ok := metricSynonyms[reply]
			return metric, ok
		},
	})
	if err != nil {
		return "", err
	}
	if outcome != outcomeResolved {
		return "", aborted("metric", outcome)
	}
	return metric, nil
}

type directionThreshold struct {
	direction domain.Direction
	threshold decimal.Decimal
}

func (s *Selector) selectThreshold(ctx context.Context, conv domain.Conversation, metric domain.Metric) (domain.Direction, decimal.Decimal, error) {
	s.say(ctx, conv, fmt.Sprintf("Reply with a direction and threshold for `%s`, e.g. `above 1000000` or `below 250000`, or `cancel`.", metric))

	value, outcome, err := negotiate(ctx, s, conv, prompt[directionThreshold]{
		stage: "threshold",
		retry: "Invalid input. Use `above <number>` or `below <number>` with a positive number, or `cancel`.",
		parse: parseDirectionThreshold,
	})
	if err != nil {
		return "", decimal.Decimal{}, err
	}
	if outcome != outcomeResolved {
		return "", decimal.Decimal{}, aborted("threshold", outcome)
	}
	return value.direction, value.threshold, nil
}

func parseDirectionThreshold(reply string) (directionThreshold, bool) {
	parts := strings.Fields(reply)
	if len(parts) != 2 {
		return directionThreshold{}, false
	}
	direction, err := domain.ParseDirection(parts[0])
	if err != nil {
		return directionThreshold{}, false
	}
	threshold, err := domain.ParseThreshold(parts[1])
	if err != nil {
		return directionThreshold{}, false
	}
	return directionThreshold{direction: direction, threshold: threshold}, true
}

type prompt[T any] struct {
	stage string
	retry string
	parse func(reply string) (T, bool)
}

// negotiate waits for up to maxReplyAttempts replies. A timeout or `cancel`
// ends it at once; an unparsable reply costs one attempt. Only transport
// errors are returned as err.
func negotiate[T any](ctx context.Context, s *Selector, conv domain.Conversation, p prompt[T]) (T, replyOutcome, error) {
	var zero T
	for attempt := 1; attempt <= maxReplyAttempts; attempt++ {
		reply, err := conv.AwaitReply(ctx, s.replyTimeout)
		if errors.Is(err, domain.ErrReplyTimeout) {
			s.say(ctx, conv, "You took too long to respond. Please try again.")
			metrics.RecordSelection(p.stage, string(outcomeTimedOut))
			return zero, outcomeTimedOut, nil
		}
		if err != nil {
			return zero, "", fmt.Errorf("await reply: %w", err)
		}

		reply = strings.TrimSpace(reply)
		if reply == cancelToken {
			s.say(ctx, conv, "Alert setup cancelled.")
			metrics.RecordSelection(p.stage, string(outcomeCancelled))
			return zero, outcomeCancelled, nil
		}

		if value, ok := p.parse(reply); ok {
			metrics.RecordSelection(p.stage, string(outcomeResolved))
			return value, outcomeResolved, nil
		}

		if attempt < maxReplyAttempts {
			s.say(ctx, conv, fmt.Sprintf("%s (%d attempts left)", p.retry, maxReplyAttempts-attempt))
		}
	}

	s.say(ctx, conv, "Too many invalid attempts. Please try again.")
	metrics.RecordSelection(p.stage, string(outcomeExhausted))
	return zero, outcomeExhausted, nil
}

// isDigits reports whether value is a non-empty run of ASCII digits.
func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func aborted(stage string, outcome replyOutcome) error {
	return fmt.Errorf("%w: %s %s", ErrSelectionAborted, stage, outcome)
}

func (s *Selector) say(ctx context.Context, conv domain.Conversation, text string) {
	if err := conv.Send(ctx, text); err != nil {
		s.logger.Warn("failed to send message", zap.Error(err))
	}
}
