package dexscreener

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NasaVasa/pairalert/internal/domain"
)

const na = "na"

// Render formats a pair as Telegram markdown. Missing fields render as "na".
func (c *Client) Render(p domain.Pair) string {
	return RenderPair(p)
}

func RenderPair(p domain.Pair) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🌐 *Chain*: `%s` | 🔄 *DEX*: `%s` | 🔗 [URL](%s)\n", or(p.ChainID), or(p.DexID), or(p.URL))
	fmt.Fprintf(&b, "📦 *Pair*: %s/%s - `%s`\n", or(p.BaseToken.Symbol), or(p.QuoteToken.Symbol), or(p.PairAddress))
	fmt.Fprintf(&b, "🪙 *Token*: %s | %s 📂 `%s`\n", or(p.BaseToken.Name), or(p.BaseToken.Symbol), or(p.BaseToken.Address))
	fmt.Fprintf(&b, "💵 *Price (N)*: %s | 💵 *Price (USD)*: %s\n", or(p.PriceNative), or(p.PriceUSD))

	volume := bucketValues(p.Volume)
	fmt.Fprintf(&b, "📊 *Volume* 24h: %s | 6h: %s | 1h: %s | 5m: %s\n", volume[0], volume[1], volume[2], volume[3])

	change := bucketValues(p.PriceChange)
	fmt.Fprintf(&b, "📈 *Change* 5m: %s%% | 1h: %s%% | 6h: %s%% | 24h: %s%%\n", change[3], change[2], change[1], change[0])

	liqUSD, liqBase, liqQuote := na, na, na
	if p.Liquidity != nil {
		liqUSD, liqBase, liqQuote = num(p.Liquidity.USD), num(p.Liquidity.Base), num(p.Liquidity.Quote)
	}
	fmt.Fprintf(&b, "💧 *Liquidity* USD: $%s | Base: %s | Quote: %s\n", liqUSD, liqBase, liqQuote)
	fmt.Fprintf(&b, "💰 *Market Cap*: $%s | *FDV*: $%s\n", num(p.MarketCap), num(p.FDV))

	created := na
	if p.PairCreatedAt != nil {
		created = p.PairCreatedAt.UTC().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(&b, "⏳ *Created* `%s`", created)

	if p.Info != nil {
		if len(p.Info.Websites) > 0 {
			b.WriteString("\n" + strings.Join(p.Info.Websites, " "))
		}
		if len(p.Info.Socials) > 0 {
			links := make([]string, 0, len(p.Info.Socials))
			for _, s := range p.Info.Socials {
				links = append(links, s.URL)
			}
			b.WriteString("\n" + strings.Join(links, " "))
		}
	}
	return b.String()
}

// bucketValues returns 24h, 6h, 1h, 5m.
func bucketValues(b *domain.Buckets) [4]string {
	if b == nil {
		return [4]string{na, na, na, na}
	}
	return [4]string{num(b.H24), num(b.H6), num(b.H1), num(b.M5)}
}

func num(value *float64) string {
	if value == nil {
		return na
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func or(value string) string {
	if value == "" {
		return na
	}
	return value
}
