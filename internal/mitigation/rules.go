package mitigation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"biodivscope-backend-go/internal/threat"
)

var defaultActions = []Action{
	{
		Factor:   "habitat loss",
		Priority: threat.High,
		Actions: []string{
			"Protect remaining native habitat on and around the property",
			"Restore degraded areas with native plantings",
			"Avoid new construction in sensitive zones",
		},
	},
	{
		Factor:   "invasive species",
		Priority: threat.High,
		Actions: []string{
			"Remove invasive plants from landscaped areas",
			"Use only native species in new plantings",
			"Inspect deliveries and guest equipment for hitchhiking species",
		},
	},
	{
		Factor:   "pollution",
		Priority: threat.Moderate,
		Actions: []string{
			"Reduce fertilizer and pesticide use",
			"Install runoff filtration near waterways",
			"Eliminate single-use plastics",
		},
	},
	{
		Factor:   "climate change",
		Priority: threat.Moderate,
		Actions: []string{
			"Cut energy use and switch to renewable supply",
			"Plant shade trees and climate-resilient native species",
		},
	},
	{
		Factor:   "light pollution",
		Priority: threat.Low,
		Actions: []string{
			"Use shielded, warm-colored outdoor lighting",
			"Turn off non-essential lights during migration seasons",
		},
	},
	{
		Factor:   "water use",
		Priority: threat.Low,
		Actions: []string{
			"Install low-flow fixtures",
			"Harvest rainwater for irrigation",
		},
	},
}

// Rules recommends actions from a fixed table keyed by threat factor.
type Rules struct {
	actions map[string]Action
	order   []string
}

func NewRules() *Rules {
	return NewRulesWith(defaultActions)
}

func NewRulesWith(actions []Action) *Rules {
	r := &Rules{actions: map[string]Action{}}
	for _, a := range actions {
		key := factorKey(a.Factor)
		if _, dup := r.actions[key]; !dup {
			r.order = append(r.order, key)
		}
		r.actions[key] = a
	}
	return r
}

func (r *Rules) QueryAction(_ context.Context, factor string) (Action, error) {
	action, ok := r.actions[factorKey(factor)]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownFactor, factor)
	}
	return action, nil
}

func (r *Rules) ThreatLevelFromCode(code string) threat.Level {
	return threat.FromCode(code)
}

// GenerateReport counts the species per risk level and collects actions for
// the requested factors. Without explicit factors, high-risk species pull in
// every high-priority action.
func (r *Rules) GenerateReport(ctx context.Context, req Request) (Report, error) {
	report := Report{
		Location:  req.Location,
		Total:     len(req.Species),
		Levels:    map[threat.Level]int{},
		Species:   make([]AssessedSpecies, 0, len(req.Species)),
		Actions:   []Action{},
		Unmatched: []string{},
	}
	for _, level := range threat.Levels() {
		report.Levels[level] = 0
	}
	for _, sp := range req.Species {
		level := r.speciesLevel(sp)
		report.Levels[level]++
		report.Species = append(report.Species, AssessedSpecies{Name: sp.Name, Level: level})
	}

	factors := req.ThreatFactors
	if len(factors) == 0 {
		factors = r.factorsFor(report.Levels)
	}
	seen := map[string]bool{}
	for _, factor := range factors {
		key := factorKey(factor)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		action, err := r.QueryAction(ctx, factor)
		if err != nil {
			report.Unmatched = append(report.Unmatched, factor)
			continue
		}
		report.Actions = append(report.Actions, action)
	}
	sort.SliceStable(report.Actions, func(i, j int) bool {
		return priorityRank(report.Actions[i].Priority) < priorityRank(report.Actions[j].Priority)
	})
	return report, nil
}

func (r *Rules) speciesLevel(sp Species) threat.Level {
	if strings.TrimSpace(sp.Status) != "" {
		return threat.Standardize(sp.Status)
	}
	if strings.TrimSpace(sp.Code) != "" {
		return threat.FromCode(sp.Code)
	}
	return threat.Unknown
}

func (r *Rules) factorsFor(levels map[threat.Level]int) []string {
	var factors []string
	for _, key := range r.order {
		action := r.actions[key]
		switch {
		case levels[threat.High] > 0 && action.Priority == threat.High:
			factors = append(factors, action.Factor)
		case levels[threat.Moderate] > 0 && action.Priority == threat.Moderate:
			factors = append(factors, action.Factor)
		}
	}
	return factors
}

func factorKey(factor string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(factor, "_", " "))), " ")
}

func priorityRank(level threat.Level) int {
	switch level {
	case threat.High:
		return 0
	case threat.Moderate:
		return 1
	case threat.Low:
		return 2
	default:
		return 3
	}
}
