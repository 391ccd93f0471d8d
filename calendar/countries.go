package calendar

import (
	"strings"
	"unicode"
)

// builtinCountries covers instruments whose name is not a currency pair.
var builtinCountries = map[string][]string{
	"XAUUSD": {"USD"},
	"XAGUSD": {"USD"},
	"US30":   {"USD"},
	"US500":  {"USD"},
	"NAS100": {"USD"},
	"USTEC":  {"USD"},
	"GER40":  {"EUR"},
	"DE30":   {"EUR"},
	"DE40":   {"EUR"},
	"EU50":   {"EUR"},
	"UK100":  {"GBP"},
	"JP225":  {"JPY"},
	"AUS200": {"AUD"},
}

// MapInstrumentToCountries resolves the calendar country codes whose events
// affect symbol. Explicit overrides win, then the built-in table, then the
// two currencies of a six letter pair.
func MapInstrumentToCountries(symbol string, overrides map[string][]string) []string {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	for k, v := range overrides {
		if strings.EqualFold(k, key) {
			return upper(v)
		}
	}
	if v, ok := builtinCountries[key]; ok {
		return upper(v)
	}
	if len(key) == 6 && isLetters(key) {
		return []string{key[:3], key[3:]}
	}
	if key == "" {
		return nil
	}
	return []string{key}
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
