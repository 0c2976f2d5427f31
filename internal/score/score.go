// Package score normalizes answers and grades submitted papers.
package score

import (
	"sort"
	"strings"

	"github.com/pavelanni/quizbank/internal/model"
)

// Normalized is an answer in comparable form. For SingleChoice, Label holds
// the option letter; for MultipleChoice, Labels holds the sorted label set;
// for free-text types, Text holds the cleaned text. Answered distinguishes an
// untouched question from a real (possibly empty-set) value.
type Normalized struct {
	Answered bool
	Label    string
	Labels   []string
	Text     string
}

// String renders the normalized answer for display.
func (n Normalized) String() string {
	if !n.Answered {
		return ""
	}
	switch {
	case n.Label != "":
		return n.Label
	case n.Labels != nil:
		return strings.Join(n.Labels, ",")
	default:
		return n.Text
	}
}

// cleanup applies the shared canonicalization: trim, uppercase, and full-width
// comma to ASCII comma.
func cleanup(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ToUpper(s)
	return strings.ReplaceAll(s, "，", ",")
}

// labelSet splits a cleaned comma-separated list into a sorted label set.
// Each fragment is trimmed before use; empty fragments and duplicates drop out.
func labelSet(cleaned string) []string {
	seen := make(map[string]bool)
	for _, part := range strings.Split(cleaned, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		seen[part] = true
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// leadingLabel extracts the option letter from a selection rendered as
// "A. option text". A bare label passes through unchanged.
func leadingLabel(cleaned string) string {
	if cleaned == "" {
		return ""
	}
	return string([]rune(cleaned)[0])
}

// NormalizeCorrectAnswer canonicalizes the answer cell of a question record.
// Free-text reference answers are cleaned for display only and never compared.
func NormalizeCorrectAnswer(t model.QuestionType, raw string) Normalized {
	cleaned := cleanup(raw)
	switch t {
	case model.SingleChoice:
		return Normalized{Answered: true, Label: leadingLabel(cleaned)}
	case model.MultipleChoice:
		return Normalized{Answered: true, Labels: labelSet(cleaned)}
	default:
		return Normalized{Answered: true, Text: strings.TrimSpace(raw)}
	}
}

// NormalizeUserAnswer canonicalizes a learner's raw answer. A missing or empty
// value yields the unanswered sentinel for every type.
func NormalizeUserAnswer(t model.QuestionType, a model.Answer) Normalized {
	if a.IsEmpty(t) {
		return Normalized{}
	}
	switch t {
	case model.SingleChoice:
		return Normalized{Answered: true, Label: leadingLabel(cleanup(a.Selected))}
	case model.MultipleChoice:
		labels := make([]string, 0, len(a.Checked))
		for _, c := range a.Checked {
			if c = cleanup(c); c != "" {
				labels = append(labels, c)
			}
		}
		return Normalized{Answered: true, Labels: dedupeSorted(labels)}
	default:
		return Normalized{Answered: true, Text: strings.TrimSpace(a.Text)}
	}
}

func dedupeSorted(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := labels[:0]
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Score grades a paper against the collected answers. It is a pure function
// of its inputs: calling it twice yields identical reports.
//
// SingleChoice and MultipleChoice count toward AutoGradable; an unanswered
// auto-gradable question is simply incorrect. MultipleChoice requires exact
// set equality, with no partial credit for subsets or supersets. Free-text
// types get Correct=nil and surface the reference answer for self-check.
func Score(p model.ExamPaper, answers map[int]model.Answer) model.ScoreReport {
	report := model.ScoreReport{PerQuestion: make([]model.Verdict, 0, len(p))}
	for i, q := range p {
		correct := NormalizeCorrectAnswer(q.Type, q.CorrectAnswer)
		user := NormalizeUserAnswer(q.Type, answers[i])

		v := model.Verdict{
			Index:         i,
			Type:          q.Type,
			Answered:      user.Answered,
			UserAnswer:    user.String(),
			CorrectAnswer: correct.String(),
			Explanation:   q.Explanation,
		}

		switch q.Type {
		case model.SingleChoice:
			ok := user.Answered && user.Label == correct.Label
			v.Correct = &ok
			report.AutoGradable++
		case model.MultipleChoice:
			ok := user.Answered && equalSets(user.Labels, correct.Labels)
			v.Correct = &ok
			report.AutoGradable++
		}
		if v.Correct != nil && *v.Correct {
			report.Correct++
		}
		report.PerQuestion = append(report.PerQuestion, v)
	}
	return report
}
