package model

import "slices"

// CanonicalSymbols is the instrument set every source maps from.
var CanonicalSymbols = []string{
	"EURUSD", "GBPUSD", "USDJPY", "USDCHF", "USDCAD", "AUDUSD", "NZDUSD",
	"XAUUSD", "XAGUSD", "USOIL", "NAS100", "SPX500", "DJI",
}

// IsCanonicalSymbol reports whether symbol is in CanonicalSymbols.
func IsCanonicalSymbol(symbol string) bool {
	return slices.Contains(CanonicalSymbols, symbol)
}

// IsFXPair reports whether symbol is a six-letter currency pair (metals excluded).
func IsFXPair(symbol string) bool {
	if len(symbol) != 6 {
		return false
	}
	switch symbol[:3] {
	case "XAU", "XAG":
		return false
	}
	for _, r := range symbol {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
