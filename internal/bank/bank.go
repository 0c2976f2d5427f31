// Package bank holds the in-memory question bank: an ordered, immutable
// collection of question records with type filtering and counting.
package bank

import (
	"fmt"
	"strings"

	"github.com/pavelanni/quizbank/internal/model"
)

// SchemaError reports a record that is missing a required field.
type SchemaError struct {
	Row   int    // zero-based position in the loaded sequence
	Field string // "type", "prompt" or "correct_answer"
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("question %d: missing required field %q", e.Row, e.Field)
}

// Bank is an ordered question collection, immutable once loaded.
type Bank struct {
	records []model.QuestionRecord
}

// Load validates the already-parsed records and builds a bank from them.
// The first record missing a required field aborts the load with a SchemaError.
func Load(records []model.QuestionRecord) (*Bank, error) {
	for i, r := range records {
		switch {
		case r.Type == "":
			return nil, &SchemaError{Row: i, Field: "type"}
		case strings.TrimSpace(r.Prompt) == "":
			return nil, &SchemaError{Row: i, Field: "prompt"}
		case strings.TrimSpace(r.CorrectAnswer) == "":
			return nil, &SchemaError{Row: i, Field: "correct_answer"}
		}
	}
	b := &Bank{records: make([]model.QuestionRecord, len(records))}
	copy(b.records, records)
	return b, nil
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int { return len(b.records) }

// Records returns a copy of all records in bank order.
func (b *Bank) Records() []model.QuestionRecord {
	out := make([]model.QuestionRecord, len(b.records))
	copy(out, b.records)
	return out
}

// FilterByTypes returns the subsequence of records whose type is in the given
// set, preserving bank order. An empty selection yields an empty result.
func (b *Bank) FilterByTypes(types ...model.QuestionType) []model.QuestionRecord {
	selected := make(map[model.QuestionType]bool, len(types))
	for _, t := range types {
		selected[t] = true
	}
	var out []model.QuestionRecord
	for _, r := range b.records {
		if selected[r.Type] {
			out = append(out, r)
		}
	}
	return out
}

// CountByType returns how many questions of each type the bank holds.
func (b *Bank) CountByType() map[model.QuestionType]int {
	counts := make(map[model.QuestionType]int)
	for _, r := range b.records {
		counts[r.Type]++
	}
	return counts
}
