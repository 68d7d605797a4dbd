package service

import (
	"testing"

	"trading-dashboard/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestInferSymbol(t *testing.T) {
	tests := []struct {
		symbol      string
		category    string
		subcategory string
		base        string
		quote       string
	}{
		{"EURUSD", model.CategoryForex, "major", "EUR", "USD"},
		{"EURGBP", model.CategoryForex, "minor", "EUR", "GBP"},
		{"USDTRY", model.CategoryForex, "exotic", "USD", "TRY"},
		{"BTCUSDT", model.CategoryCrypto, "coin", "BTC", "USDT"},
		{"BTCUSD", model.CategoryCrypto, "coin", "BTC", "USD"},
		{"XAUUSD", model.CategoryCommodity, "metal", "XAU", "USD"},
		{"AAPL", model.CategoryStock, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got := inferSymbol(tt.symbol)
			assert.Equal(t, tt.category, got.Category)
			if tt.subcategory != "" {
				if assert.NotNil(t, got.Subcategory) {
					assert.Equal(t, tt.subcategory, *got.Subcategory)
				}
			}
			if tt.base != "" {
				if assert.NotNil(t, got.BaseCurrency) {
					assert.Equal(t, tt.base, *got.BaseCurrency)
				}
			}
			if tt.quote != "" {
				if assert.NotNil(t, got.QuoteCurrency) {
					assert.Equal(t, tt.quote, *got.QuoteCurrency)
				}
			}
		})
	}
}

func TestIsValidSymbolIdentifier(t *testing.T) {
	assert.True(t, isValidSymbolIdentifier("EURUSD"))
	assert.True(t, isValidSymbolIdentifier(normalizeSymbol("  btcusdt ")))
	assert.False(t, isValidSymbolIdentifier(""))
	assert.False(t, isValidSymbolIdentifier("EUR USD"))
	assert.False(t, isValidSymbolIdentifier("ABCDEFGHIJKLMNOPQRSTU"))

	// single-letter tickers are valid identifiers and infer as stocks
	for _, ticker := range []string{"F", "T", "C"} {
		assert.True(t, isValidSymbolIdentifier(ticker), ticker)
		assert.Equal(t, model.CategoryStock, inferSymbol(ticker).Category, ticker)
	}
}
