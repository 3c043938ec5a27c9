package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"assessment-service/internal/grading"
	"assessment-service/internal/logging"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// APIServer exposes authoring, grading and reporting as JSON over HTTP.
type APIServer struct {
	catalog  *app.CatalogService
	attempts *app.AttemptService
	reports  *app.ReportService
	log      *zap.Logger
}

func NewAPIServer(catalog *app.CatalogService, attempts *app.AttemptService, reports *app.ReportService, logger *zap.Logger) *APIServer {
	return &APIServer{catalog: catalog, attempts: attempts, reports: reports, log: logging.OrNop(logger)}
}

func (s *APIServer) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/questions", s.listQuestions).Methods(http.MethodGet)
	r.HandleFunc("/questions", s.createQuestion).Methods(http.MethodPost)
	r.HandleFunc("/questions/assist", s.assistQuestion).Methods(http.MethodPost)
	r.HandleFunc("/questions/{code}", s.updateQuestion).Methods(http.MethodPut)
	r.HandleFunc("/questions/{code}", s.deleteQuestion).Methods(http.MethodDelete)

	r.HandleFunc("/quizzes", s.listQuizzes).Methods(http.MethodGet)
	r.HandleFunc("/quizzes", s.createQuiz).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{id}", s.updateQuiz).Methods(http.MethodPut)
	r.HandleFunc("/quizzes/{id}", s.deleteQuiz).Methods(http.MethodDelete)
	r.HandleFunc("/quizzes/{id}/window", s.rescheduleQuiz).Methods(http.MethodPut)
	r.HandleFunc("/quizzes/{id}/eligibility", s.checkEligibility).Methods(http.MethodGet)

	r.HandleFunc("/subjects", s.listSubjects).Methods(http.MethodGet)

	r.HandleFunc("/attempts", s.listAttempts).Methods(http.MethodGet)
	r.HandleFunc("/attempts/{id}/grade", s.gradeAttempt).Methods(http.MethodPost)
	r.HandleFunc("/attempts/{id}/rubric", s.gradeAttemptByRubric).Methods(http.MethodPost)

	r.HandleFunc("/reports/dashboard", s.dashboard).Methods(http.MethodGet)
}

func (s *APIServer) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.catalog.ListQuestions(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (s *APIServer) createQuestion(w http.ResponseWriter, r *http.Request) {
	var q domain.Question
	if !decode(w, r, &q) {
		return
	}
	created, err := s.catalog.CreateQuestion(r.Context(), q)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *APIServer) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var q domain.Question
	if !decode(w, r, &q) {
		return
	}
	q.Code = mux.Vars(r)["code"]
	if err := s.catalog.UpdateQuestion(r.Context(), q); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteQuestion(r.Context(), mux.Vars(r)["code"]); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) assistQuestion(w http.ResponseWriter, r *http.Request) {
	var draft domain.Question
	if !decode(w, r, &draft) {
		return
	}
	suggested, err := s.catalog.Assist(r.Context(), draft)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggested)
}

func (s *APIServer) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := s.catalog.ListQuizzes(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (s *APIServer) createQuiz(w http.ResponseWriter, r *http.Request) {
	var q domain.Quiz
	if !decode(w, r, &q) {
		return
	}
	created, err := s.catalog.CreateQuiz(r.Context(), q)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *APIServer) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var q domain.Quiz
	if !decode(w, r, &q) {
		return
	}
	q.ID = mux.Vars(r)["id"]
	if err := s.catalog.UpdateQuiz(r.Context(), q); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteQuiz(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) rescheduleQuiz(w http.ResponseWriter, r *http.Request) {
	var window domain.Window
	if !decode(w, r, &window) {
		return
	}
	if err := s.catalog.Reschedule(r.Context(), mux.Vars(r)["id"], window); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type eligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

func (s *APIServer) checkEligibility(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing studentId")
		return
	}
	preview, _ := strconv.ParseBool(r.URL.Query().Get("preview"))
	err := s.attempts.CheckEligibility(r.Context(), mux.Vars(r)["id"], studentID, preview)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, eligibilityResponse{Eligible: true})
	case statusFor(err) == http.StatusForbidden:
		writeJSON(w, http.StatusOK, eligibilityResponse{Eligible: false, Reason: err.Error()})
	default:
		s.fail(w, err)
	}
}

func (s *APIServer) listSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.catalog.ListSubjects(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (s *APIServer) listAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.attempts.ListAttempts(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

type gradeResponse struct {
	Attempt     domain.Attempt       `json:"attempt"`
	Adjustments []grading.Adjustment `json:"adjustments"`
}

type gradeRequest struct {
	Scores map[string]float64 `json:"scores"`
}

func (s *APIServer) gradeAttempt(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if !decode(w, r, &req) {
		return
	}
	graded, adjustments, err := s.attempts.ManualGrade(r.Context(), mux.Vars(r)["id"], req.Scores)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gradeResponse{Attempt: graded, Adjustments: nonNil(adjustments)})
}

type rubricRequest struct {
	// Awards maps question code to criterion key to awarded points.
	Awards map[string]map[string]float64 `json:"awards"`
}

func (s *APIServer) gradeAttemptByRubric(w http.ResponseWriter, r *http.Request) {
	var req rubricRequest
	if !decode(w, r, &req) {
		return
	}
	graded, adjustments, err := s.attempts.GradeByRubric(r.Context(), mux.Vars(r)["id"], req.Awards)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gradeResponse{Attempt: graded, Adjustments: nonNil(adjustments)})
}

func (s *APIServer) dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.reports.Dashboard(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *APIServer) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, map[string]any{"error": "validation failed", "problems": verr.Problems})
		return
	}
	writeError(w, status, err.Error())
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrKeyKindMismatch),
		errors.Is(err, domain.ErrInvalidAttemptLimit):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOutsideWindow),
		errors.Is(err, domain.ErrNotAssigned),
		errors.Is(err, domain.ErrAttemptLimitReached):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyGraded),
		errors.Is(err, domain.ErrQuestionInUse),
		errors.Is(err, domain.ErrQuizInUse):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAssistUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}

func nonNil(adjustments []grading.Adjustment) []grading.Adjustment {
	if adjustments == nil {
		return []grading.Adjustment{}
	}
	return adjustments
}
