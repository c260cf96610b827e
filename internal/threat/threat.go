// Package threat maps IUCN conservation statuses onto the dashboard's risk levels.
package threat

import "strings"

type Level string

const (
	High     Level = "high"
	Moderate Level = "moderate"
	Low      Level = "low"
	Unknown  Level = "unknown"
)

var statusLevels = map[string]Level{
	"critically endangered": High,
	"endangered":            High,
	"vulnerable":            Moderate,
	"near threatened":       Moderate,
	"least concern":         Low,
	"data deficient":        Unknown,
	"extinct":               High,
	"extinct in the wild":   High,
	"unknown":               Low,
}

var codeStatuses = map[string]string{
	"CR": "critically endangered",
	"EN": "endangered",
	"VU": "vulnerable",
	"NT": "near threatened",
	"LC": "least concern",
	"DD": "data deficient",
	"EX": "extinct",
	"EW": "extinct in the wild",
}

// Standardize maps a free-text status to a risk level. Unrecognized input,
// including the literal "unknown", is reported as Low.
func Standardize(status string) Level {
	if level, ok := statusLevels[strings.ToLower(strings.TrimSpace(status))]; ok {
		return level
	}
	return Low
}

// FromCode maps a two-letter IUCN category code. Unrecognized codes are Unknown.
func FromCode(code string) Level {
	status, ok := codeStatuses[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Unknown
	}
	return Standardize(status)
}

func Levels() []Level {
	return []Level{High, Moderate, Low, Unknown}
}
