package version

import (
	"regexp"
	"strings"
)

type Operator string

const (
	GTE Operator = ">="
	LTE Operator = "<="
	GT  Operator = ">"
	LT  Operator = "<"
	EQ  Operator = "=="
)

// Predicate is one comparison of a version range, e.g. ">=7.0".
type Predicate struct {
	Operator Operator
	Value    string
}

var predicateRegex = regexp.MustCompile(`^([><=]+)([\d.]+)`)

var operatorAliases = map[string]Operator{
	">=": GTE,
	"=>": GTE,
	"<=": LTE,
	"=<": LTE,
	">":  GT,
	"<":  LT,
	"==": EQ,
	"=":  EQ,
}

// ParsePredicates splits a range such as ">=7.0,<8.9" into its predicates.
// Segments that do not look like operator+version are dropped. Operator
// tokens outside the known set are kept verbatim and never match.
func ParsePredicates(rng string) []Predicate {
	preds := []Predicate{}

	if strings.TrimSpace(rng) == "" {
		return preds
	}

	for _, segment := range strings.Split(rng, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		m := predicateRegex.FindStringSubmatch(segment)
		if m == nil {
			continue
		}

		op, ok := operatorAliases[m[1]]
		if !ok {
			op = Operator(m[1])
		}

		preds = append(preds, Predicate{Operator: op, Value: m[2]})
	}

	return preds
}

// Known reports whether the operator is one of the five canonical comparisons.
func (o Operator) Known() bool {
	switch o {
	case GTE, LTE, GT, LT, EQ:
		return true
	}
	return false
}

func (p Predicate) String() string {
	return string(p.Operator) + p.Value
}
