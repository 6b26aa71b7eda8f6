package extraction

import "strings"

// currencyAliases maps symbols, words and loose spellings onto ISO 4217
// codes. Matching is case-insensitive after trimming; the codes themselves
// are included so Standardize is idempotent.
var currencyAliases = map[string]string{
	// US dollar
	"usd": "USD", "$": "USD", "us$": "USD", "dollar": "USD", "dollars": "USD",
	// Euro
	"eur": "EUR", "€": "EUR", "euro": "EUR", "euros": "EUR",
	// Russian ruble
	"rub": "RUB", "₽": "RUB", "руб": "RUB", "руб.": "RUB", "рубль": "RUB",
	"рубля": "RUB", "рублей": "RUB", "ruble": "RUB", "rubles": "RUB", "rouble": "RUB",
	// British pound
	"gbp": "GBP", "£": "GBP", "pound": "GBP", "pounds": "GBP",
	// Japanese yen
	"jpy": "JPY", "¥": "JPY", "yen": "JPY", "円": "JPY",
	// Chinese yuan (shares ¥ with JPY; the symbol stays with yen, the words
	// go to CNY)
	"cny": "CNY", "yuan": "CNY", "rmb": "CNY", "元": "CNY",
	// Swiss franc
	"chf": "CHF", "franc": "CHF", "francs": "CHF", "fr.": "CHF",
	// Ukrainian hryvnia
	"uah": "UAH", "₴": "UAH", "грн": "UAH", "грн.": "UAH", "гривна": "UAH", "гривень": "UAH",
	// Kazakhstani tenge
	"kzt": "KZT", "₸": "KZT", "тенге": "KZT",
	// Turkish lira
	"try": "TRY", "₺": "TRY", "lira": "TRY",
	// Indian rupee
	"inr": "INR", "₹": "INR", "rupee": "INR", "rupees": "INR",
	// Polish zloty
	"pln": "PLN", "zł": "PLN", "zloty": "PLN", "złoty": "PLN",
	// Czech koruna
	"czk": "CZK", "kč": "CZK", "koruna": "CZK",
	// Scandinavian kronor share the "kr" symbol; it resolves to SEK, the
	// words stay distinct.
	"sek": "SEK", "kr": "SEK", "krona": "SEK", "kronor": "SEK",
	"nok": "NOK", "krone": "NOK", "kroner": "NOK",
	"dkk": "DKK",
	// Canadian / Australian dollars
	"cad": "CAD", "c$": "CAD", "can$": "CAD",
	"aud": "AUD", "a$": "AUD", "au$": "AUD",
	// Georgian lari
	"gel": "GEL", "₾": "GEL", "лари": "GEL",
	// Armenian dram
	"amd": "AMD", "֏": "AMD", "драм": "AMD",
	// Belarusian ruble
	"byn": "BYN", "br": "BYN",
	// South Korean won
	"krw": "KRW", "₩": "KRW", "won": "KRW",
	// Brazilian real
	"brl": "BRL", "r$": "BRL", "real": "BRL", "reais": "BRL",
}

// StandardizeCurrency maps a free-form currency token onto its ISO 4217
// code. Unrecognized input passes through trimmed but otherwise unchanged:
// better to keep what the model saw than to guess.
func StandardizeCurrency(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if code, ok := currencyAliases[strings.ToLower(trimmed)]; ok {
		return code
	}
	return trimmed
}
