package rewrite

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
)

//go:embed rules.csv
var rulesFileData []byte

type ruleKind uint8

const (
	ruleKindLiteral ruleKind = iota + 1 // plain text replace, every occurrence
	ruleKindRegexp                      // regexp replace, ${n} expands captures
)

func (k ruleKind) String() string {
	switch k {
	case ruleKindLiteral:
		return "literal"
	case ruleKindRegexp:
		return "regexp"
	}
	return "???"
}

func ruleKindFromString(s string) (ruleKind, error) {
	switch s {
	case "literal":
		return ruleKindLiteral, nil
	case "regexp":
		return ruleKindRegexp, nil
	}
	return 0, fmt.Errorf("unknown rule kind %q", s)
}

// Rule is a single substitution applied to a handler body.
type Rule struct {
	Name        string
	Kind        ruleKind
	Pattern     string
	Replacement string

	re *regexp.Regexp
}

// Apply replaces every match of the rule in s. Text without a match is
// returned unchanged.
func (r Rule) Apply(s string) string {
	if r.Kind == ruleKindRegexp {
		return r.re.ReplaceAllString(s, r.Replacement)
	}
	return strings.ReplaceAll(s, r.Pattern, r.Replacement)
}

func (r Rule) String() string {
	return fmt.Sprintf("%-14s %-8s %s -> %s", r.Name, r.Kind, r.Pattern, r.Replacement)
}

// Rules returns the substitution table in application order.
//
// The order is load-bearing: "this.memory" must become "memory" before the
// generic "this." rule turns it into "cpu.memory", indexed reads must already
// be getByte calls when the write-back rule looks for assignments to them, and
// the implicit byte rule introduces "this.address" after the member rules have
// run so it survives verbatim.
func Rules() ([]Rule, error) {
	return parseRules(bytes.NewReader(rulesFileData))
}

func parseRules(in io.Reader) ([]Rule, error) {
	r := csv.NewReader(in)
	_, _ = r.Read() // skip header

	var rules []Rule
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("couldn't read data from csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		if len(record) != 4 {
			return nil, fmt.Errorf("invalid format for the record: %s: must be 4 parts", strings.Join(record, string(r.Comma)))
		}

		kind, err := ruleKindFromString(record[1])
		if err != nil {
			return nil, fmt.Errorf("invalid format for rule kind: %w", err)
		}

		rule := Rule{
			Name:        record[0],
			Kind:        kind,
			Pattern:     record[2],
			Replacement: record[3],
		}
		if kind == ruleKindRegexp {
			rule.re, err = regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern for rule %s: %w", rule.Name, err)
			}
		}
		rules = append(rules, rule)
	}

	return rules, nil
}
