// Package rubric defines the tilawah scoring rubric: the four criteria judged
// on every question, their legal discrete values, and the arithmetic used to
// total a question and a whole session.
package rubric

import (
	"encoding/json"
	"fmt"
)

// QuestionCount is the fixed number of questions scored per candidate per round.
const QuestionCount = 5

// Criterion names one scored dimension of a question.
type Criterion string

const (
	Recitation Criterion = "recitation"
	Siffat     Criterion = "siffat"
	Makharij   Criterion = "makharij"
	MinorError Criterion = "minor_error"
)

// Definition describes a criterion's ceiling and the values a judge may pick.
type Definition struct {
	Criterion Criterion `json:"criterion"`
	Label     string    `json:"label"`
	Max       float64   `json:"max"`
	Values    []float64 `json:"values"`
}

// definitions is ordered the way criteria appear on the scoring sheet.
var definitions = []Definition{
	{Criterion: Recitation, Label: "Bacaan", Max: 2, Values: []float64{0, 0.5, 1, 1.5, 2}},
	{Criterion: Siffat, Label: "Sifat Huruf", Max: 1, Values: []float64{0, 0.25, 0.5, 0.75, 1}},
	{Criterion: Makharij, Label: "Makharijul Huruf", Max: 2, Values: []float64{0, 0.5, 1, 1.5, 2}},
	{Criterion: MinorError, Label: "Kesalahan Kecil", Max: 1, Values: []float64{0, 0.25, 0.5, 0.75, 1}},
}

// Criteria returns all criteria in sheet order.
func Criteria() []Criterion {
	out := make([]Criterion, len(definitions))
	for i, d := range definitions {
		out[i] = d.Criterion
	}
	return out
}

// Definitions returns a copy of the rubric definitions in sheet order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	for i, d := range definitions {
		d.Values = append([]float64(nil), d.Values...)
		out[i] = d
	}
	return out
}

// Lookup returns the definition of c.
func Lookup(c Criterion) (Definition, bool) {
	for _, d := range definitions {
		if d.Criterion == c {
			return d, true
		}
	}
	return Definition{}, false
}

// ParseCriterion validates a criterion name received from a client.
func ParseCriterion(s string) (Criterion, error) {
	c := Criterion(s)
	if _, ok := Lookup(c); !ok {
		return "", fmt.Errorf("unknown criterion %q", s)
	}
	return c, nil
}

// IsLegal reports whether v is one of the discrete values allowed for c.
func IsLegal(c Criterion, v float64) bool {
	d, ok := Lookup(c)
	if !ok {
		return false
	}
	for _, allowed := range d.Values {
		if allowed == v {
			return true
		}
	}
	return false
}

// QuestionMax is the ceiling of a single question (sum of criterion maxima).
func QuestionMax() float64 {
	var sum float64
	for _, d := range definitions {
		sum += d.Max
	}
	return sum
}

// SessionMax is the ceiling of a full session.
func SessionMax() float64 {
	return QuestionMax() * QuestionCount
}

// Value is a criterion value that is either unscored or a concrete score.
// The zero Value is unscored, so a real score of 0 is never confused with
// "not yet scored".
type Value struct {
	v      float64
	scored bool
}

// Unscored returns the unscored sentinel.
func Unscored() Value { return Value{} }

// Score wraps a concrete value. Legality is checked by the caller.
func Score(v float64) Value { return Value{v: v, scored: true} }

// IsScored reports whether a concrete value has been set.
func (v Value) IsScored() bool { return v.scored }

// Get returns the concrete value and whether it is scored.
func (v Value) Get() (float64, bool) { return v.v, v.scored }

// OrZero returns the value, treating unscored as 0.
func (v Value) OrZero() float64 {
	if !v.scored {
		return 0
	}
	return v.v
}

func (v Value) String() string {
	if !v.scored {
		return "-"
	}
	return fmt.Sprintf("%g", v.v)
}

// MarshalJSON encodes unscored as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.scored {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON decodes null as unscored.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Unscored()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Score(f)
	return nil
}

// Question holds one question's criterion values and the judge's comment.
type Question struct {
	Recitation Value  `json:"recitation"`
	Siffat     Value  `json:"siffat"`
	Makharij   Value  `json:"makharij"`
	MinorError Value  `json:"minor_error"`
	Comment    string `json:"comment"`
}

// Get returns the value stored for c.
func (q Question) Get(c Criterion) Value {
	switch c {
	case Recitation:
		return q.Recitation
	case Siffat:
		return q.Siffat
	case Makharij:
		return q.Makharij
	case MinorError:
		return q.MinorError
	}
	return Unscored()
}

// Set replaces the value stored for c. Unknown criteria are ignored.
func (q *Question) Set(c Criterion, v Value) {
	switch c {
	case Recitation:
		q.Recitation = v
	case Siffat:
		q.Siffat = v
	case Makharij:
		q.Makharij = v
	case MinorError:
		q.MinorError = v
	}
}

func (q Question) values() [4]Value {
	return [4]Value{q.Recitation, q.Siffat, q.Makharij, q.MinorError}
}

// QuestionTotal sums the four criterion values, substituting 0 for unscored.
// A fully unscored question totals 0; check IsScored before reporting it.
func QuestionTotal(q Question) float64 {
	var sum float64
	for _, v := range q.values() {
		sum += v.OrZero()
	}
	return sum
}

// IsScored reports whether every criterion of q holds a concrete value.
// The comment does not matter.
func IsScored(q Question) bool {
	for _, v := range q.values() {
		if !v.IsScored() {
			return false
		}
	}
	return true
}

// IsBlank reports whether no criterion of q has been scored yet.
func IsBlank(q Question) bool {
	for _, v := range q.values() {
		if v.IsScored() {
			return false
		}
	}
	return true
}

// SessionTotal sums QuestionTotal over all questions.
func SessionTotal(qs []Question) float64 {
	var sum float64
	for _, q := range qs {
		sum += QuestionTotal(q)
	}
	return sum
}

// AllScored reports whether every question in qs IsScored.
func AllScored(qs []Question) bool {
	for _, q := range qs {
		if !IsScored(q) {
			return false
		}
	}
	return true
}
