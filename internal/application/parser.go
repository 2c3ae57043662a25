package application

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"unified-control/internal/domain"
)

type CommandParser interface {
	Parse(raw string) domain.Dispatch
}

// debugKeywords select the actuator's debug sub-grammar, e.g.
// "GROUP1,F,20+SERVO,90,50".
var debugKeywords = map[string]bool{
	"group1":  true,
	"group2":  true,
	"stepper": true,
	"servo":   true,
}

// decimalPattern accepts plain decimal notation only; strconv.ParseFloat on
// its own would also take hex floats, underscores and "inf".
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

type rule struct {
	name  string
	match func(lower string) bool
	build func(text, lower string) domain.Dispatch
}

// RuleParser classifies operator input by evaluating a fixed, ordered list of
// rules. The first matching rule wins.
type RuleParser struct {
	rules []rule
}

func NewRuleParser() *RuleParser {
	return &RuleParser{
		rules: []rule{
			{
				name:  "quit",
				match: exact("q", "quit"),
				build: func(_, _ string) domain.Dispatch {
					d := domain.Both("s", "q")
					d.Terminal = true
					return d
				},
			},
			{
				name:  "help",
				match: exact("h", "help"),
				build: func(_, _ string) domain.Dispatch { return domain.Help() },
			},
			{
				name:  "forward",
				match: prefix("f,"),
				build: gesture("f", domain.Forward),
			},
			{
				name:  "retreat",
				match: prefix("b,"),
				build: gesture("b", domain.Retreat),
			},
			{
				name:  "stop",
				match: exact("s"),
				build: func(_, _ string) domain.Dispatch { return domain.Both("s", "s") },
			},
			{
				name:  "start",
				match: prefix("start"),
				build: func(text, _ string) domain.Dispatch { return domain.ActuatorOnly(text) },
			},
			{
				name:  "debug",
				match: hasDebugKeyword,
				build: func(text, _ string) domain.Dispatch { return domain.ActuatorOnly(text) },
			},
		},
	}
}

func (p *RuleParser) Parse(raw string) domain.Dispatch {
	text := strings.Join(strings.Fields(raw), " ")
	lower := strings.ToLower(text)

	d := domain.Unknown()
	for _, r := range p.rules {
		if r.match(lower) {
			d = r.build(text, lower)
			break
		}
	}
	d.Raw = text
	return d
}

func exact(words ...string) func(string) bool {
	return func(lower string) bool {
		for _, w := range words {
			if lower == w {
				return true
			}
		}
		return false
	}
}

func prefix(p string) func(string) bool {
	return func(lower string) bool { return strings.HasPrefix(lower, p) }
}

// hasDebugKeyword matches whole tokens only, so "observo" does not route to
// the servo grammar.
func hasDebugKeyword(lower string) bool {
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ',' || r == '+' || r == ' '
	})
	for _, tok := range tokens {
		if debugKeywords[tok] {
			return true
		}
	}
	return false
}

func gesture(letter string, transform domain.LinkTransform) func(string, string) domain.Dispatch {
	return func(_, lower string) domain.Dispatch {
		value, err := parsePercent(lower)
		if err != nil {
			return domain.Error(fmt.Sprintf("%s: %v (expected %s,<0-100>)", letter, err, letter))
		}
		return domain.Both(transform(value))
	}
}

func parsePercent(lower string) (float64, error) {
	parts := strings.Split(lower, ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected 2 fields, got %d", len(parts))
	}

	field := strings.TrimSpace(parts[1])
	if !decimalPattern.MatchString(field) {
		return 0, fmt.Errorf("%q is not a number", field)
	}
	value, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%q is not a number", field)
	}

	if value < domain.MinPercent || value > domain.MaxPercent {
		return 0, fmt.Errorf("%s is outside %d-%d", field, domain.MinPercent, domain.MaxPercent)
	}

	return value, nil
}
