package service

import (
	"regexp"
	"strings"

	"trading-dashboard/internal/model"
	"trading-dashboard/pkg/utils"
)

var symbolIdentifierRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,19}$`)

var (
	majorCurrencies = map[string]bool{
		"USD": true, "EUR": true, "GBP": true, "JPY": true,
		"CHF": true, "AUD": true, "CAD": true, "NZD": true,
	}
	isoCurrencies = map[string]bool{
		"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true, "AUD": true, "CAD": true, "NZD": true,
		"SEK": true, "NOK": true, "DKK": true, "PLN": true, "HUF": true, "CZK": true, "TRY": true, "ZAR": true,
		"MXN": true, "SGD": true, "HKD": true, "CNH": true, "CNY": true, "INR": true, "IDR": true, "THB": true,
		"KRW": true, "BRL": true, "RUB": true, "ILS": true, "RON": true,
	}
	stableQuotes = []string{"USDT", "USDC", "BUSD", "FDUSD"}
	// quotes that only mark a crypto pair when the base is a known coin
	guardedQuotes = []string{"BTC", "ETH", "USD", "EUR"}
	cryptoBases  = map[string]string{
		"BTC": "coin", "ETH": "layer1", "SOL": "layer1", "ADA": "layer1", "AVAX": "layer1", "DOT": "layer1",
		"XRP": "coin", "LTC": "coin", "BCH": "coin", "BNB": "coin", "TRX": "layer1", "ATOM": "layer1",
		"MATIC": "layer2", "ARB": "layer2", "OP": "layer2",
		"UNI": "defi", "AAVE": "defi", "LINK": "defi", "MKR": "defi", "CRV": "defi",
		"DOGE": "meme", "SHIB": "meme", "PEPE": "meme",
		"USDT": "stablecoin", "USDC": "stablecoin", "DAI": "stablecoin",
	}
	metalTickers  = []string{"XAU", "XAG", "XPT", "XPD"}
	energyTickers = map[string]bool{
		"WTI": true, "BRENT": true, "USOIL": true, "UKOIL": true, "XTIUSD": true, "XBRUSD": true,
		"NGAS": true, "XNGUSD": true, "NATGAS": true,
	}
	indexRegions = map[string]string{
		"US30": "us", "US500": "us", "SPX500": "us", "NAS100": "us", "US100": "us", "US2000": "us", "SPX": "us", "NDX": "us", "DJI": "us",
		"GER40": "europe", "GER30": "europe", "DE40": "europe", "UK100": "europe", "FRA40": "europe", "EU50": "europe", "ESP35": "europe",
		"JP225": "asia", "JPN225": "asia", "HK50": "asia", "CN50": "asia", "AUS200": "asia",
	}
)

// symbolInference is the catalog metadata derived from a bare identifier.
type symbolInference struct {
	Category      string
	Subcategory   *string
	BaseCurrency  *string
	QuoteCurrency *string
	DisplayName   string
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func isValidSymbolIdentifier(symbol string) bool {
	return symbolIdentifierRegex.MatchString(symbol)
}

// inferSymbol guesses category, subcategory and currencies of an upper-cased
// identifier. Unknown shapes fall back to category other.
func inferSymbol(symbol string) symbolInference {
	if inf, ok := inferCommodity(symbol); ok {
		return inf
	}
	if region, ok := indexRegions[symbol]; ok {
		return symbolInference{Category: model.CategoryIndex, Subcategory: utils.ToPointer(region), DisplayName: symbol}
	}
	if inf, ok := inferCrypto(symbol); ok {
		return inf
	}
	if inf, ok := inferForex(symbol); ok {
		return inf
	}
	if isStockTicker(symbol) {
		return symbolInference{Category: model.CategoryStock, DisplayName: symbol}
	}
	return symbolInference{Category: model.CategoryOther, DisplayName: symbol}
}

func inferCommodity(symbol string) (symbolInference, bool) {
	if energyTickers[symbol] {
		return symbolInference{Category: model.CategoryCommodity, Subcategory: utils.ToPointer("energy"), DisplayName: symbol}, true
	}
	for _, metal := range metalTickers {
		if !strings.HasPrefix(symbol, metal) {
			continue
		}
		inf := symbolInference{Category: model.CategoryCommodity, Subcategory: utils.ToPointer("metal"), DisplayName: symbol}
		quote := strings.TrimPrefix(symbol, metal)
		if isoCurrencies[quote] {
			inf.BaseCurrency = utils.ToPointer(metal)
			inf.QuoteCurrency = utils.ToPointer(quote)
			inf.DisplayName = metal + "/" + quote
		}
		return inf, true
	}
	return symbolInference{}, false
}

func inferCrypto(symbol string) (symbolInference, bool) {
	for _, quote := range stableQuotes {
		base := strings.TrimSuffix(symbol, quote)
		if base != symbol && len(base) >= 2 {
			return cryptoInference(base, quote), true
		}
	}
	for _, quote := range guardedQuotes {
		base := strings.TrimSuffix(symbol, quote)
		if _, known := cryptoBases[base]; known && base != symbol {
			return cryptoInference(base, quote), true
		}
	}
	if _, known := cryptoBases[symbol]; known {
		inf := cryptoInference(symbol, "")
		inf.QuoteCurrency = nil
		inf.DisplayName = symbol
		return inf, true
	}
	return symbolInference{}, false
}

func cryptoInference(base, quote string) symbolInference {
	sub := "token"
	if s, ok := cryptoBases[base]; ok {
		sub = s
	}
	return symbolInference{
		Category:      model.CategoryCrypto,
		Subcategory:   utils.ToPointer(sub),
		BaseCurrency:  utils.ToPointer(base),
		QuoteCurrency: utils.ToPointer(quote),
		DisplayName:   base + "/" + quote,
	}
}

func inferForex(symbol string) (symbolInference, bool) {
	if len(symbol) != 6 || !isAlpha(symbol) {
		return symbolInference{}, false
	}
	base, quote := symbol[:3], symbol[3:]
	if !isoCurrencies[base] || !isoCurrencies[quote] || base == quote {
		return symbolInference{}, false
	}

	sub := "exotic"
	switch {
	case (base == "USD" && majorCurrencies[quote]) || (quote == "USD" && majorCurrencies[base]):
		sub = "major"
	case majorCurrencies[base] && majorCurrencies[quote]:
		sub = "minor"
	}

	return symbolInference{
		Category:      model.CategoryForex,
		Subcategory:   utils.ToPointer(sub),
		BaseCurrency:  utils.ToPointer(base),
		QuoteCurrency: utils.ToPointer(quote),
		DisplayName:   base + "/" + quote,
	}, true
}

func isStockTicker(symbol string) bool {
	return len(symbol) >= 1 && len(symbol) <= 5 && isAlpha(symbol)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
