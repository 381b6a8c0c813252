package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	AnswerKindSingle   = "single"
	AnswerKindMultiple = "multiple"
)

// AnswerValue is a tagged quiz answer: either a single value or an
// unordered set of values. Stored in the database as a JSON text column,
// the same way question options are stored.
type AnswerValue struct {
	Kind   string   `json:"kind"`
	Values []string `json:"values"`
}

func SingleAnswer(value string) AnswerValue {
	return AnswerValue{Kind: AnswerKindSingle, Values: []string{value}}
}

func MultipleAnswer(values ...string) AnswerValue {
	return AnswerValue{Kind: AnswerKindMultiple, Values: values}
}

func (a AnswerValue) Valid() bool {
	switch a.Kind {
	case AnswerKindSingle:
		return len(a.Values) == 1
	case AnswerKindMultiple:
		return len(a.Values) > 0
	default:
		return false
	}
}

// Equal compares two answers structurally. Multi-value answers compare as
// sets, so the order the client sends the values in does not matter.
func (a AnswerValue) Equal(other AnswerValue) bool {
	if a.Kind != other.Kind || len(a.Values) != len(other.Values) {
		return false
	}
	if a.Kind == AnswerKindSingle {
		return a.Values[0] == other.Values[0]
	}

	left := append([]string(nil), a.Values...)
	right := append([]string(nil), other.Values...)
	sort.Strings(left)
	sort.Strings(right)
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}

// EncodeAnswer serializes an answer for storage in a JSON text column.
func EncodeAnswer(a AnswerValue) string {
	raw, _ := json.Marshal(a)
	return string(raw)
}

// DecodeAnswer parses an answer stored in a JSON text column.
func DecodeAnswer(raw string) (AnswerValue, error) {
	var a AnswerValue
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return AnswerValue{}, fmt.Errorf("decode answer: %w", err)
	}
	if !a.Valid() {
		return AnswerValue{}, fmt.Errorf("decode answer: %w", ErrValidation)
	}
	return a, nil
}
