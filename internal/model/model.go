package model

import (
	"fmt"
	"strings"
)

// QuestionType classifies a question by how it is answered and scored.
type QuestionType string

const (
	// SingleChoice questions have exactly one correct option label.
	SingleChoice QuestionType = "single_choice"
	// MultipleChoice questions have a set of correct option labels.
	MultipleChoice QuestionType = "multiple_choice"
	// FillBlank questions take free text and are checked manually.
	FillBlank QuestionType = "fill_blank"
	// ShortAnswer questions take free text and are checked manually.
	ShortAnswer QuestionType = "short_answer"
)

// AutoGradable reports whether correctness can be decided from the answer key.
func (t QuestionType) AutoGradable() bool {
	return t == SingleChoice || t == MultipleChoice
}

// ParseQuestionType maps a raw type cell to a QuestionType. Both the English
// identifiers and the Chinese labels used by the original bank files are accepted.
func ParseQuestionType(raw string) (QuestionType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "single_choice", "single", "单选", "单选题":
		return SingleChoice, nil
	case "multiple_choice", "multi", "多选", "多选题":
		return MultipleChoice, nil
	case "fill_blank", "fill", "填空", "填空题":
		return FillBlank, nil
	case "short_answer", "short", "简答", "简答题":
		return ShortAnswer, nil
	}
	return "", fmt.Errorf("unknown question type %q", raw)
}

// OptionLabels is the full range of option labels a bank may use. Variants cap
// the usable prefix via ExamConfig.MaxOptionLabels (5 or 6).
var OptionLabels = []string{"A", "B", "C", "D", "E", "F"}

// Option is one answer choice of a choice question.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionRecord is one row of the question bank.
//
// Options hold only the slots whose text is non-blank; their labels form a
// strict prefix of OptionLabels. CorrectAnswer is the raw answer cell: a label
// for SingleChoice, a comma-separated label list for MultipleChoice (ASCII or
// full-width commas), free reference text otherwise.
type QuestionRecord struct {
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation,omitempty"`
}

// ExamPaper is the fixed, ordered set of questions of one exam attempt. The
// order is the sampling order and governs question numbering for the session.
type ExamPaper []QuestionRecord

// Answer is the raw value a learner entered for one question. Exactly one
// field is meaningful, matching the question type's shape.
type Answer struct {
	// Selected is a SingleChoice selection, either a bare label or the
	// rendered "A. option text" form.
	Selected string `json:"selected,omitempty"`
	// Checked is the set of labels ticked on a MultipleChoice question.
	Checked []string `json:"checked,omitempty"`
	// Text is the free-text answer of FillBlank and ShortAnswer questions.
	Text string `json:"text,omitempty"`
}

// IsEmpty reports whether the answer counts as "not answered" for the given
// question type. An explicit empty value is equivalent to no answer at all.
func (a Answer) IsEmpty(t QuestionType) bool {
	switch t {
	case SingleChoice:
		return strings.TrimSpace(a.Selected) == ""
	case MultipleChoice:
		return len(a.Checked) == 0
	default:
		return strings.TrimSpace(a.Text) == ""
	}
}

// Verdict is the scoring outcome of a single paper position.
type Verdict struct {
	Index    int          `json:"index"`
	Type     QuestionType `json:"type"`
	Answered bool         `json:"answered"`
	// Correct is nil for question types that are not machine-graded.
	Correct *bool `json:"correct,omitempty"`
	// UserAnswer and CorrectAnswer are the normalized display forms.
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

// ScoreReport aggregates the verdicts of one submitted paper.
type ScoreReport struct {
	PerQuestion  []Verdict `json:"per_question"`
	AutoGradable int       `json:"auto_gradable"`
	Correct      int       `json:"correct"`
}

// Percent returns the aggregate percentage over auto-gradable questions.
// The second result is false when the paper has no auto-gradable questions.
func (r ScoreReport) Percent() (float64, bool) {
	if r.AutoGradable == 0 {
		return 0, false
	}
	return float64(r.Correct) / float64(r.AutoGradable) * 100, true
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	NumQuestions    int      // default paper size, clamped to the filtered bank
	MaxOptionLabels int      // 5 or 6 depending on the bank variant
	Types           []string // type filter preselected on the command line
	BankPaths       []string // question bank files (CSV or XLSX)
	Seed            uint64   // 0 means non-deterministic sampling
}
