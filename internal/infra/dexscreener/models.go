package dexscreener

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
)

type searchResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []pair `json:"pairs"`
}

type token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type buckets struct {
	H24 NullableFloat `json:"h24"`
	H6  NullableFloat `json:"h6"`
	H1  NullableFloat `json:"h1"`
	M5  NullableFloat `json:"m5"`
}

type liquidity struct {
	USD   NullableFloat `json:"usd"`
	Base  NullableFloat `json:"base"`
	Quote NullableFloat `json:"quote"`
}

type website struct {
	URL string `json:"url"`
}

type social struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type info struct {
	ImageURL  string    `json:"imageUrl"`
	Header    string    `json:"header"`
	OpenGraph string    `json:"openGraph"`
	Websites  []website `json:"websites"`
	Socials   []social  `json:"socials"`
}

type pair struct {
	ChainID       string        `json:"chainId"`
	DexID         string        `json:"dexId"`
	URL           string        `json:"url"`
	PairAddress   string        `json:"pairAddress"`
	BaseToken     token         `json:"baseToken"`
	QuoteToken    token         `json:"quoteToken"`
	PriceNative   string        `json:"priceNative"`
	PriceUSD      string        `json:"priceUsd"`
	Volume        *buckets      `json:"volume"`
	PriceChange   *buckets      `json:"priceChange"`
	Liquidity     *liquidity    `json:"liquidity"`
	FDV           NullableFloat `json:"fdv"`
	MarketCap     NullableFloat `json:"marketCap"`
	PairCreatedAt NullableFloat `json:"pairCreatedAt"`
	Info          *info         `json:"info"`
}

// NullableFloat accepts a JSON number, a quoted number or null.
type NullableFloat struct {
	Value float64
	Valid bool
}

func (n *NullableFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		n.Valid = false
		return nil
	}
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) == 0 {
		n.Valid = false
		return nil
	}
	if trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		trimmed = strings.Trim(trimmed, "\"")
		if trimmed == "" {
			n.Valid = false
			return nil
		}
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		n.Valid = false
		return err
	}
	n.Value = value
	n.Valid = true
	return nil
}

func (n NullableFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n NullableFloat) ptr() *float64 {
	if !n.Valid {
		return nil
	}
	value := n.Value
	return &value
}

func (b *buckets) toDomain() *domain.Buckets {
	if b == nil {
		return nil
	}
	return &domain.Buckets{H24: b.H24.ptr(), H6: b.H6.ptr(), H1: b.H1.ptr(), M5: b.M5.ptr()}
}

func (p pair) toDomain() domain.Pair {
	out := domain.Pair{
		ChainID:     p.ChainID,
		DexID:       p.DexID,
		URL:         p.URL,
		PairAddress: p.PairAddress,
		BaseToken:   domain.Token(p.BaseToken),
		QuoteToken:  domain.Token(p.QuoteToken),
		PriceNative: p.PriceNative,
		PriceUSD:    p.PriceUSD,
		Volume:      p.Volume.toDomain(),
		PriceChange: p.PriceChange.toDomain(),
		FDV:         p.FDV.ptr(),
		MarketCap:   p.MarketCap.ptr(),
	}
	if p.Liquidity != nil {
		out.Liquidity = &domain.Liquidity{
			USD:   p.Liquidity.USD.ptr(),
			Base:  p.Liquidity.Base.ptr(),
			Quote: p.Liquidity.Quote.ptr(),
		}
	}
	if p.PairCreatedAt.Valid {
		created := time.UnixMilli(int64(p.PairCreatedAt.Value)).UTC()
		out.PairCreatedAt = &created
	}
	if p.Info != nil {
		pairInfo := &domain.PairInfo{
			ImageURL:  p.Info.ImageURL,
			Header:    p.Info.Header,
			OpenGraph: p.Info.OpenGraph,
		}
		for _, site := range p.Info.Websites {
			if site.URL != "" {
				pairInfo.Websites = append(pairInfo.Websites, site.URL)
			}
		}
		for _, s := range p.Info.Socials {
			pairInfo.Socials = append(pairInfo.Socials, domain.Link{Type: s.Type, URL: s.URL})
		}
		out.Info = pairInfo
	}
	return out
}
