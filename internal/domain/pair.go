package domain

import (
	"errors"
	"time"
)

var (
	ErrNoPairs           = errors.New("no pairs found")
	ErrMetricUnavailable = errors.New("metric unavailable")
)

type Token struct {
	Address string
	Name    string
	Symbol  string
}

// Buckets holds values for the 24h/6h/1h/5m windows. Nil means not reported.
type Buckets struct {
	H24 *float64
	H6  *float64
	H1  *float64
	M5  *float64
}

type Liquidity struct {
	USD   *float64
	Base  *float64
	Quote *float64
}

type Link struct {
	Type string
	URL  string
}

type PairInfo struct {
	ImageURL  string
	Header    string
	OpenGraph string
	Websites  []string
	Socials   []Link
}

// Pair is a trading pair as reported by the market-data provider. It is never persisted.
type Pair struct {
	ChainID       string
	DexID         string
	URL           string
	PairAddress   string
	BaseToken     Token
	QuoteToken    Token
	PriceNative   string
	PriceUSD      string
	Volume        *Buckets
	PriceChange   *Buckets
	Liquidity     *Liquidity
	FDV           *float64
	MarketCap     *float64
	PairCreatedAt *time.Time
	Info          *PairInfo
}

func (p Pair) Symbol() string {
	return p.BaseToken.Symbol + "/" + p.QuoteToken.Symbol
}
