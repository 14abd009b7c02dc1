package types

// zeroDecimalCurrencies are 3 digit ISO codes whose minor unit is the whole unit
var zeroDecimalCurrencies = map[string]bool{
	"jpy": true,
	"krw": true,
	"vnd": true,
	"clp": true,
	"isk": true,
}

// CurrencyPrecision returns the number of decimal places amounts are rounded
// to for a given lowercase ISO currency code. Rounding happens only at final
// amount computation, never mid-calculation.
func CurrencyPrecision(code string) int32 {
	if zeroDecimalCurrencies[code] {
		return 0
	}
	return 2
}

// CURRENCY_CODES_SYMBOLS is a map of 3 digit ISO currency codes to their symbols
var CURRENCY_CODES_SYMBOLS = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
	"cny": "¥",
	"krw": "₩",
	"inr": "₹",
	"sgd": "S$",
	"hkd": "HK$",
	"aud": "AU$",
	"cad": "CA$",
	"vnd": "₫",
	"thb": "฿",
	"myr": "RM",
}

// GetCurrencySymbol returns the symbol for a given currency code
// if the code is not found, it returns the code itself
func GetCurrencySymbol(code string) string {
	if symbol, ok := CURRENCY_CODES_SYMBOLS[code]; ok {
		return symbol
	}
	return code
}
