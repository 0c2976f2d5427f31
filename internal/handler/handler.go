// Package handler exposes the exam engine over a JSON HTTP API. It holds the
// single exam session of the process and maps engine errors to HTTP statuses.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/quizbank/internal/bank"
	appI18n "github.com/pavelanni/quizbank/internal/i18n"
	"github.com/pavelanni/quizbank/internal/model"
	"github.com/pavelanni/quizbank/internal/paper"
	"github.com/pavelanni/quizbank/internal/score"
	"github.com/pavelanni/quizbank/internal/session"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	bank *bank.Bank
	gen  *paper.Generator
	cfg  model.ExamConfig

	// The engine assumes one logical operation in flight per session; the
	// mutex upholds that guarantee at the HTTP boundary.
	mu   sync.Mutex
	sess *session.Session
}

// New creates a new Handler with an empty session.
func New(b *bank.Bank, gen *paper.Generator, cfg model.ExamConfig) *Handler {
	return &Handler{bank: b, gen: gen, cfg: cfg, sess: session.New()}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleOverview)
	r.Post("/exam/start", h.handleStart)
	r.Get("/exam", h.handlePaper)
	r.Post("/exam/answer/{index}", h.handleAnswer)
	r.Post("/exam/submit", h.handleSubmit)
	r.Get("/exam/result", h.handleResult)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) bankTypes() []model.QuestionType {
	counts := h.bank.CountByType()
	types := make([]model.QuestionType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

type overviewResponse struct {
	Title   string                     `json:"title"`
	Total   int                        `json:"total"`
	Counts  map[model.QuestionType]int `json:"counts"`
	Types   []model.QuestionType       `json:"types"`
	Message string                     `json:"message"`
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, overviewResponse{
		Title:   appI18n.T(r.Context(), "AppTitle"),
		Total:   h.bank.Len(),
		Counts:  h.bank.CountByType(),
		Types:   h.bankTypes(),
		Message: appI18n.Tp(r.Context(), "QuestionsAvailable", h.bank.Len()),
	})
}

type startRequest struct {
	// Types filters the bank before sampling. Omitted means all types;
	// an explicit empty list matches nothing.
	Types *[]string `json:"types,omitempty"`
	// Num is the paper size. 0 falls back to the configured default,
	// clamped to the filtered bank size.
	Num int `json:"num"`
}

func (h *Handler) selectedTypes(req startRequest) ([]model.QuestionType, error) {
	if req.Types == nil {
		return h.bankTypes(), nil
	}
	types := make([]model.QuestionType, 0, len(*req.Types))
	for _, raw := range *req.Types {
		t, err := model.ParseQuestionType(raw)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	types, err := h.selectedTypes(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filtered := h.bank.FilterByTypes(types...)
	if len(filtered) == 0 {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "NoMatchingQuestions"))
		return
	}

	n := req.Num
	if n == 0 {
		n = h.cfg.NumQuestions
		if n == 0 || n > len(filtered) {
			n = len(filtered)
		}
	}

	p, err := h.gen.Generate(filtered, n)
	if err != nil {
		if errors.Is(err, paper.ErrInvalidSampleSize) {
			respondError(w, http.StatusBadRequest,
				appI18n.Td(r.Context(), "InvalidSampleSize", map[string]any{"Max": len(filtered)}))
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.mu.Lock()
	h.sess.StartNewPaper(p)
	h.mu.Unlock()

	slog.Info("started new paper", "questions", len(p), "types", types)
	h.handlePaper(w, r)
}

type questionView struct {
	Index   int                `json:"index"`
	Type    model.QuestionType `json:"type"`
	Prompt  string             `json:"prompt"`
	Options []model.Option     `json:"options,omitempty"`
}

type paperResponse struct {
	Questions []questionView `json:"questions"`
	Answered  int            `json:"answered"`
	Submitted bool           `json:"submitted"`
}

func (h *Handler) handlePaper(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	p := h.sess.Paper()
	resp := paperResponse{
		Questions: make([]questionView, 0, len(p)),
		Answered:  h.sess.Answered(),
		Submitted: h.sess.Submitted(),
	}
	h.mu.Unlock()

	if len(p) == 0 {
		respondError(w, http.StatusConflict, appI18n.T(r.Context(), "NoActivePaper"))
		return
	}
	// Correct answers and explanations stay server-side until submission.
	for i, q := range p {
		resp.Questions = append(resp.Questions, questionView{
			Index:   i,
			Type:    q.Type,
			Prompt:  q.Prompt,
			Options: q.Options,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

type answerResponse struct {
	Answered int  `json:"answered"`
	Total    int  `json:"total"`
	Recorded bool `json:"recorded"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid question index")
		return
	}
	var a model.Answer
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.sess.Paper()) == 0 {
		respondError(w, http.StatusConflict, appI18n.T(r.Context(), "NoActivePaper"))
		return
	}
	if err := h.sess.RecordAnswer(index, a); err != nil {
		switch {
		case errors.Is(err, session.ErrNotEditable):
			respondError(w, http.StatusConflict, appI18n.T(r.Context(), "AlreadySubmitted"))
		case errors.Is(err, session.ErrIndexOutOfRange):
			respondError(w, http.StatusNotFound, appI18n.T(r.Context(), "QuestionNotFound"))
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, answerResponse{
		Answered: h.sess.Answered(),
		Total:    len(h.sess.Paper()),
		Recorded: true,
	})
}

type verdictView struct {
	model.Verdict
	Label string `json:"label"`
}

type reportResponse struct {
	PerQuestion  []verdictView `json:"per_question"`
	AutoGradable int           `json:"auto_gradable"`
	Correct      int           `json:"correct"`
	Percent      *float64      `json:"percent,omitempty"`
	ScoreLine    string        `json:"score_line"`
}

func (h *Handler) reportView(r *http.Request, rep model.ScoreReport) reportResponse {
	resp := reportResponse{
		PerQuestion:  make([]verdictView, 0, len(rep.PerQuestion)),
		AutoGradable: rep.AutoGradable,
		Correct:      rep.Correct,
		ScoreLine: appI18n.Td(r.Context(), "ScoreLine",
			map[string]any{"Correct": rep.Correct, "Total": rep.AutoGradable}),
	}
	if pct, ok := rep.Percent(); ok {
		resp.Percent = &pct
	}
	for _, v := range rep.PerQuestion {
		label := appI18n.T(r.Context(), "VerdictManual")
		switch {
		case v.Correct != nil && *v.Correct:
			label = appI18n.T(r.Context(), "VerdictCorrect")
		case v.Correct != nil:
			label = appI18n.T(r.Context(), "VerdictIncorrect")
		}
		if !v.Answered && v.Type.AutoGradable() {
			v.UserAnswer = appI18n.T(r.Context(), "Unanswered")
		}
		resp.PerQuestion = append(resp.PerQuestion, verdictView{Verdict: v, Label: label})
	}
	return resp
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.sess.Submit(); err != nil {
		respondError(w, http.StatusBadRequest, appI18n.T(r.Context(), "EmptyPaper"))
		return
	}
	rep := score.Score(h.sess.Paper(), h.sess.Answers())
	respondJSON(w, http.StatusOK, h.reportView(r, rep))
}

func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.sess.Submitted() {
		respondError(w, http.StatusConflict, appI18n.T(r.Context(), "NotSubmitted"))
		return
	}
	// Scoring is pure, so re-deriving the report here is safe.
	rep := score.Score(h.sess.Paper(), h.sess.Answers())
	respondJSON(w, http.StatusOK, h.reportView(r, rep))
}
