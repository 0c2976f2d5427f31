// Package session holds the mutable state of one exam attempt: the current
// paper, the answers collected so far, and the submitted flag.
package session

import (
	"errors"
	"fmt"

	"github.com/pavelanni/quizbank/internal/model"
)

var (
	// ErrNotEditable is returned when an answer write arrives after submission.
	ErrNotEditable = errors.New("session already submitted")
	// ErrIndexOutOfRange is returned for answer writes to positions the
	// paper does not have.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrEmptyPaper is returned when submitting a session without a paper.
	ErrEmptyPaper = errors.New("no paper to submit")
)

// Session is a single learner's exam context. It is owned by the caller and
// mutated by exactly one writer at a time; it does no locking of its own.
type Session struct {
	paper     model.ExamPaper
	answers   map[int]model.Answer
	submitted bool
}

// New returns an empty session with no paper.
func New() *Session {
	return &Session{answers: make(map[int]model.Answer)}
}

// StartNewPaper replaces the paper, clears all answers and re-enters the
// editable state. Any previous attempt is discarded outright.
func (s *Session) StartNewPaper(p model.ExamPaper) {
	s.paper = p
	s.answers = make(map[int]model.Answer)
	s.submitted = false
}

// RecordAnswer stores the answer for one paper position. Re-answering a
// question replaces the prior value. Fails without mutating state when the
// session is submitted or the index is not a valid position.
func (s *Session) RecordAnswer(index int, a model.Answer) error {
	if s.submitted {
		return ErrNotEditable
	}
	if index < 0 || index >= len(s.paper) {
		return fmt.Errorf("%w: %d (paper has %d questions)", ErrIndexOutOfRange, index, len(s.paper))
	}
	s.answers[index] = a
	return nil
}

// Submit freezes the answers. Submitting an already-submitted session is a
// no-op so results can be viewed again.
func (s *Session) Submit() error {
	if len(s.paper) == 0 {
		return ErrEmptyPaper
	}
	s.submitted = true
	return nil
}

// Submitted reports whether the session has been submitted.
func (s *Session) Submitted() bool { return s.submitted }

// Paper returns the current paper.
func (s *Session) Paper() model.ExamPaper { return s.paper }

// Answered returns how many questions have a recorded answer.
func (s *Session) Answered() int { return len(s.answers) }

// Answers returns a copy of the recorded answers keyed by paper position.
// Absent keys mean "not answered".
func (s *Session) Answers() map[int]model.Answer {
	out := make(map[int]model.Answer, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}
