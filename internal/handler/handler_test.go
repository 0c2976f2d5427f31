package handler

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/quizbank/internal/bank"
	appI18n "github.com/pavelanni/quizbank/internal/i18n"
	"github.com/pavelanni/quizbank/internal/model"
	"github.com/pavelanni/quizbank/internal/paper"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testBank(t *testing.T) *bank.Bank {
	t.Helper()
	b, err := bank.Load([]model.QuestionRecord{
		{Type: model.SingleChoice, Prompt: "S1", CorrectAnswer: "A",
			Options: []model.Option{{Label: "A", Text: "yes"}, {Label: "B", Text: "no"}}},
		{Type: model.SingleChoice, Prompt: "S2", CorrectAnswer: "B",
			Options: []model.Option{{Label: "A", Text: "up"}, {Label: "B", Text: "down"}, {Label: "C", Text: "left"}}},
		{Type: model.MultipleChoice, Prompt: "M1", CorrectAnswer: "A,C",
			Options: []model.Option{{Label: "A", Text: "one"}, {Label: "B", Text: "two"}, {Label: "C", Text: "three"}}},
		{Type: model.ShortAnswer, Prompt: "T1", CorrectAnswer: "reference"},
	})
	if err != nil {
		t.Fatalf("bank.Load: %v", err)
	}
	return b
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	h := New(testBank(t), paper.NewSeededGenerator(7), model.ExamConfig{NumQuestions: 20, MaxOptionLabels: 6})
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestOverview(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[overviewResponse](t, w)
	if resp.Total != 4 {
		t.Errorf("expected 4 questions, got %d", resp.Total)
	}
	if resp.Counts[model.SingleChoice] != 2 {
		t.Errorf("expected 2 single choice, got %d", resp.Counts[model.SingleChoice])
	}
	if len(resp.Types) != 3 {
		t.Errorf("expected 3 types, got %v", resp.Types)
	}
	if resp.Message == "" {
		t.Error("expected localized availability message")
	}
}

func TestNoActivePaper(t *testing.T) {
	r := newTestRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/exam", nil); w.Code != http.StatusConflict {
		t.Errorf("GET /exam without paper: expected 409, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/exam/answer/0", model.Answer{Selected: "A"}); w.Code != http.StatusConflict {
		t.Errorf("answer without paper: expected 409, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/exam/submit", struct{}{}); w.Code != http.StatusBadRequest {
		t.Errorf("submit without paper: expected 400, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/exam/result", nil); w.Code != http.StatusConflict {
		t.Errorf("result without submission: expected 409, got %d", w.Code)
	}
}

func TestStartRejectsBadRequests(t *testing.T) {
	r := newTestRouter(t)

	// More questions than the bank holds.
	w := doJSON(t, r, http.MethodPost, "/exam/start", map[string]any{"num": 99})
	if w.Code != http.StatusBadRequest {
		t.Errorf("oversized paper: expected 400, got %d", w.Code)
	}

	// An explicit empty type filter matches nothing.
	w = doJSON(t, r, http.MethodPost, "/exam/start", map[string]any{"types": []string{}, "num": 1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty type filter: expected 400, got %d", w.Code)
	}

	// Unknown type names are rejected.
	w = doJSON(t, r, http.MethodPost, "/exam/start", map[string]any{"types": []string{"essay"}, "num": 1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown type: expected 400, got %d", w.Code)
	}
}

func TestStartFiltersByType(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/exam/start",
		map[string]any{"types": []string{"single_choice"}, "num": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[paperResponse](t, w)
	if len(resp.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(resp.Questions))
	}
	for _, q := range resp.Questions {
		if q.Type != model.SingleChoice {
			t.Errorf("expected only single choice, got %s", q.Type)
		}
	}
}

func TestExamFlow(t *testing.T) {
	r := newTestRouter(t)

	// Start a paper over the whole bank.
	w := doJSON(t, r, http.MethodPost, "/exam/start", map[string]any{"num": 4})
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); strings.Contains(body, "correct_answer") || strings.Contains(body, "reference") {
		t.Error("paper response leaks correct answers")
	}
	started := decode[paperResponse](t, w)
	if len(started.Questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(started.Questions))
	}

	// Answer by prompt so the test is independent of sampling order:
	// S1 right, S2 wrong, M1 exact set, T1 left blank.
	answers := map[string]model.Answer{
		"S1": {Selected: "A. yes"},
		"S2": {Selected: "C"},
		"M1": {Checked: []string{"A", "C"}},
	}
	for _, q := range started.Questions {
		a, ok := answers[q.Prompt]
		if !ok {
			continue
		}
		w := doJSON(t, r, http.MethodPost, "/exam/answer/"+strconv.Itoa(q.Index), a)
		if w.Code != http.StatusOK {
			t.Fatalf("answer %s: expected 200, got %d: %s", q.Prompt, w.Code, w.Body.String())
		}
	}

	// Submit and check the report.
	w = doJSON(t, r, http.MethodPost, "/exam/submit", struct{}{})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	report := decode[reportResponse](t, w)
	if report.AutoGradable != 3 {
		t.Errorf("expected 3 auto-gradable, got %d", report.AutoGradable)
	}
	if report.Correct != 2 {
		t.Errorf("expected 2 correct, got %d", report.Correct)
	}
	if report.Percent == nil || math.Abs(*report.Percent-66.7) > 0.1 {
		t.Errorf("expected percentage near 66.7, got %v", report.Percent)
	}
	manual := 0
	for _, v := range report.PerQuestion {
		if v.Correct == nil {
			manual++
			if v.CorrectAnswer != "reference" {
				t.Errorf("expected reference answer surfaced, got %q", v.CorrectAnswer)
			}
		}
	}
	if manual != 1 {
		t.Errorf("expected 1 manual verdict, got %d", manual)
	}

	// Results stay available and identical after submission.
	w = doJSON(t, r, http.MethodGet, "/exam/result", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("result: expected 200, got %d", w.Code)
	}
	again := decode[reportResponse](t, w)
	if again.Correct != report.Correct || again.AutoGradable != report.AutoGradable {
		t.Errorf("result diverged from submit report: %+v vs %+v", again, report)
	}

	// Submitting again is a no-op.
	if w := doJSON(t, r, http.MethodPost, "/exam/submit", struct{}{}); w.Code != http.StatusOK {
		t.Errorf("re-submit: expected 200, got %d", w.Code)
	}

	// Answer writes are frozen now.
	if w := doJSON(t, r, http.MethodPost, "/exam/answer/0", model.Answer{Selected: "B"}); w.Code != http.StatusConflict {
		t.Errorf("answer after submit: expected 409, got %d", w.Code)
	}

	// A fresh paper re-enters the editable state.
	w = doJSON(t, r, http.MethodPost, "/exam/start", map[string]any{"num": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("restart: expected 200, got %d", w.Code)
	}
	restarted := decode[paperResponse](t, w)
	if restarted.Submitted || restarted.Answered != 0 {
		t.Errorf("expected clean session after restart, got %+v", restarted)
	}
}

func TestAnswerIndexOutOfRange(t *testing.T) {
	r := newTestRouter(t)
	if w := doJSON(t, r, http.MethodPost, "/exam/start", map[string]any{"num": 2}); w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodPost, "/exam/answer/5", model.Answer{Selected: "A"}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/exam/answer/abc", model.Answer{Selected: "A"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric index, got %d", w.Code)
	}
}
