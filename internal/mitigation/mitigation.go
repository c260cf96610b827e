// Package mitigation recommends conservation actions for threatened species.
package mitigation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"biodivscope-backend-go/internal/threat"
)

const (
	BackendRules = "rules"
	BackendNone  = "none"
)

var (
	ErrUnavailable   = errors.New("ML features not available yet")
	ErrUnknownFactor = errors.New("unknown threat factor")
)

type Advisor interface {
	GenerateReport(ctx context.Context, req Request) (Report, error)
	QueryAction(ctx context.Context, factor string) (Action, error)
	ThreatLevelFromCode(code string) threat.Level
}

type Species struct {
	Name   string `json:"species_name"`
	Status string `json:"threat_status,omitempty"`
	Code   string `json:"code,omitempty"`
}

type Request struct {
	Location      string    `json:"location"`
	Species       []Species `json:"species"`
	ThreatFactors []string  `json:"threat_factors"`
}

type Action struct {
	Factor   string       `json:"threat_factor"`
	Priority threat.Level `json:"priority"`
	Actions  []string     `json:"actions"`
}

type AssessedSpecies struct {
	Name  string       `json:"species_name"`
	Level threat.Level `json:"risk_level"`
}

type Report struct {
	Location  string               `json:"location"`
	Total     int                  `json:"total_species"`
	Levels    map[threat.Level]int `json:"risk_levels"`
	Species   []AssessedSpecies    `json:"species"`
	Actions   []Action             `json:"actions"`
	Unmatched []string             `json:"unmatched_factors"`
}

// Select builds the advisor named by backend. A nil advisor means the
// mitigation routes stay unregistered. With strict set, a backend that
// cannot serve recommendations is an error.
func Select(backend string, stubs, strict bool) (Advisor, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendRules:
		return NewRules(), nil
	case BackendNone:
		if strict {
			return nil, fmt.Errorf("mitigation backend %q: %w", backend, ErrUnavailable)
		}
		if !stubs {
			return nil, nil
		}
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown mitigation backend %q", backend)
	}
}

// Unavailable answers every request with ErrUnavailable.
type Unavailable struct{}

func (Unavailable) GenerateReport(context.Context, Request) (Report, error) {
	return Report{}, ErrUnavailable
}

func (Unavailable) QueryAction(context.Context, string) (Action, error) {
	return Action{}, ErrUnavailable
}

func (Unavailable) ThreatLevelFromCode(string) threat.Level {
	return threat.Unknown
}
