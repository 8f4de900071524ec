package sumcustomset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/twonirwana/dicebutton/pkg/dicebutton/dice"
)

// Evaluator turns a combined dice expression into a rolled result.
// Implementations must be safe for concurrent use.
type Evaluator interface {
	// Validate reports whether the expression could be rolled.
	Validate(expression string) error
	// Evaluate rolls the expression.
	Evaluate(expression string) (Rolled, error)
}

// Rolled is the outcome of evaluating one expression. Values keeps the
// individual dice in roll order, constants included, with the sign of
// their term applied.
type Rolled struct {
	Sum    int
	Values []int
}

const maxDicePerExpression = 1000

// DiceEvaluator evaluates sum expressions of the form "3d6+1d20-2": one
// or more signed terms, each either a dice term NdM or an integer
// constant.
type DiceEvaluator struct {
	roller dice.Roller
}

func NewDiceEvaluator(roller dice.Roller) *DiceEvaluator {
	return &DiceEvaluator{roller: roller}
}

func (e *DiceEvaluator) Validate(expression string) error {
	_, err := parseExpression(expression)
	return err
}

func (e *DiceEvaluator) Evaluate(expression string) (Rolled, error) {
	terms, err := parseExpression(expression)
	if err != nil {
		return Rolled{}, err
	}
	var r Rolled
	for _, t := range terms {
		if t.sides == 0 {
			v := t.sign * t.count
			r.Sum += v
			r.Values = append(r.Values, v)
			continue
		}
		for _, v := range e.roller.RollN(t.count, t.sides) {
			v *= t.sign
			r.Sum += v
			r.Values = append(r.Values, v)
		}
	}
	return r, nil
}

type term struct {
	sign  int
	count int
	sides int // 0 marks a plain modifier
}

func parseExpression(expression string) ([]term, error) {
	s := strings.ReplaceAll(expression, " ", "")
	if s == "" {
		return nil, fmt.Errorf("empty expression")
	}
	var terms []term
	diceCount := 0
	for i := 0; i < len(s); {
		sign := 1
		if s[i] == '+' || s[i] == '-' {
			if s[i] == '-' {
				sign = -1
			}
			i++
		}
		start := i
		for i < len(s) && s[i] != '+' && s[i] != '-' {
			i++
		}
		if start == i {
			return nil, fmt.Errorf("dangling operator in %q", expression)
		}
		t, err := parseTerm(sign, s[start:i])
		if err != nil {
			return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
		}
		diceCount += t.count
		if t.sides > 0 && diceCount > maxDicePerExpression {
			return nil, fmt.Errorf("expression %q rolls more than %d dice", expression, maxDicePerExpression)
		}
		terms = append(terms, t)
	}
	return terms, nil
}

func parseTerm(sign int, tok string) (term, error) {
	d := strings.IndexAny(tok, "dD")
	if d < 0 {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return term{}, fmt.Errorf("%q is neither a dice term nor a number", tok)
		}
		return term{sign: sign, count: v}, nil
	}
	count := 1
	if tok[:d] != "" {
		var err error
		count, err = strconv.Atoi(tok[:d])
		if err != nil || count < 1 {
			return term{}, fmt.Errorf("bad dice count in %q", tok)
		}
	}
	sides, err := strconv.Atoi(tok[d+1:])
	if err != nil || sides < 2 {
		return term{}, fmt.Errorf("bad sides in %q", tok)
	}
	return term{sign: sign, count: count, sides: sides}, nil
}
