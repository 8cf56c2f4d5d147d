package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedMetric = errors.New("unsupported metric")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInvalidThreshold  = errors.New("invalid threshold")
	ErrInvalidTimeout    = errors.New("invalid timeout")
	ErrInvalidKey        = errors.New("invalid alert key")
)

const (
	MinTimeoutMinutes = 1
	MaxTimeoutMinutes = 60
)

// Thresholds stay within float64 range so keys and messages have bounded length.
const (
	maxThresholdDigits    = 32
	minThresholdMagnitude = -324
	maxThresholdMagnitude = 308
)

type Metric string

const MetricMarketCap Metric = "market_cap"

func ParseMetric(value string) (Metric, error) {
	switch Metric(value) {
	case MetricMarketCap:
		return MetricMarketCap, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMetric, value)
	}
}

type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

func ParseDirection(value string) (Direction, error) {
	switch Direction(value) {
	case DirectionAbove, DirectionBelow:
		return Direction(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, value)
	}
}

// ParseThreshold accepts a positive decimal number with a finite float64 form.
func ParseThreshold(value string) (decimal.Decimal, error) {
	threshold, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidThreshold, value)
	}
	if !threshold.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: must be positive", ErrInvalidThreshold)
	}
	digits := threshold.NumDigits()
	magnitude := int(threshold.Exponent()) + digits - 1
	if digits > maxThresholdDigits || magnitude < minThresholdMagnitude || magnitude > maxThresholdMagnitude {
		return decimal.Decimal{}, fmt.Errorf("%w: out of range", ErrInvalidThreshold)
	}
	if f, _ := threshold.Float64(); math.IsInf(f, 0) || f == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: out of range", ErrInvalidThreshold)
	}
	return threshold, nil
}

func ValidateTimeout(minutes int) error {
	if minutes < MinTimeoutMinutes || minutes > MaxTimeoutMinutes {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidTimeout, minutes, MinTimeoutMinutes, MaxTimeoutMinutes)
	}
	return nil
}

// AlertKey identifies an alert. No two live alerts share a key.
type AlertKey struct {
	UserID      string
	PairAddress string
	Metric      Metric
	Direction   Direction
	Threshold   decimal.Decimal
}

// Crossed reports whether value lies strictly past the threshold in the key's direction.
func (k AlertKey) Crossed(value float64) bool {
	cmp := decimal.NewFromFloat(value).Cmp(k.Threshold)
	switch k.Direction {
	case DirectionAbove:
		return cmp > 0
	case DirectionBelow:
		return cmp < 0
	default:
		return false
	}
}

// String renders the colon-joined storage form user:pair:metric:direction:threshold.
func (k AlertKey) String() string {
	return strings.Join([]string{
		k.UserID,
		k.PairAddress,
		string(k.Metric),
		string(k.Direction),
		FormatThreshold(k.Threshold),
	}, ":")
}

func (k AlertKey) Validate() error {
	if k.UserID == "" || strings.Contains(k.UserID, ":") {
		return fmt.Errorf("%w: bad user id %q", ErrInvalidKey, k.UserID)
	}
	if k.PairAddress == "" || strings.Contains(k.PairAddress, ":") {
		return fmt.Errorf("%w: bad pair address %q", ErrInvalidKey, k.PairAddress)
	}
	if _, err := ParseMetric(string(k.Metric)); err != nil {
		return err
	}
	if _, err := ParseDirection(string(k.Direction)); err != nil {
		return err
	}
	if !k.Threshold.IsPositive() {
		return fmt.Errorf("%w: must be positive", ErrInvalidThreshold)
	}
	return nil
}

// ParseAlertKey is the inverse of AlertKey.String.
func ParseAlertKey(raw string) (AlertKey, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 5 {
		return AlertKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	metric, err := ParseMetric(parts[2])
	if err != nil {
		return AlertKey{}, err
	}
	direction, err := ParseDirection(parts[3])
	if err != nil {
		return AlertKey{}, err
	}
	threshold, err := ParseThreshold(parts[4])
	if err != nil {
		return AlertKey{}, err
	}
	key := AlertKey{
		UserID:      parts[0],
		PairAddress: parts[1],
		Metric:      metric,
		Direction:   direction,
		Threshold:   threshold,
	}
	if err := key.Validate(); err != nil {
		return AlertKey{}, err
	}
	return key, nil
}

// FormatThreshold writes integral values with a trailing ".0". That matches
// Python's str(float) for integral values below 1e16 only; larger and very
// small values are rendered differently there (1e+16, 1e-05), so stored names
// are not always canonical.
func FormatThreshold(threshold decimal.Decimal) string {
	text := threshold.String()
	if !strings.ContainsAny(text, ".eE") {
		text += ".0"
	}
	return text
}
