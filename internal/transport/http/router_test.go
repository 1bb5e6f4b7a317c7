package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/domain"
	"quizgen/internal/infra/memory"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server   *httptest.Server
	services *app.Services
	store    *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	for _, u := range []domain.User{
		{ID: "alice", FirstName: "Alice", LastName: "A", Email: "alice@example.com", IsActive: true},
		{ID: "bob", FirstName: "Bob", LastName: "B", Email: "bob@example.com", IsActive: true},
		{ID: "carol", FirstName: "Carol", Email: "carol@example.com", IsActive: false},
	} {
		if err := store.SaveUser(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	services := app.NewServices(store.Stores(), app.Options{})
	router := NewRouter(RouterConfig{Services: services, JWTSecret: testSecret})
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		services.Drain()
	})
	return &testEnv{server: server, services: services, store: store}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) (int, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out response
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func quizBody(public bool) map[string]any {
	return map[string]any{
		"title":    "Go basics",
		"category": "Programming",
		"isPublic": public,
		"questions": []map[string]any{
			{
				"question": "Which keyword starts a goroutine?",
				"options": []map[string]any{
					{"text": "go", "isCorrect": true},
					{"text": "async"},
				},
			},
			{
				"question": "Zero value of a map?",
				"options": []map[string]any{
					{"text": "nil", "isCorrect": true},
					{"text": "empty map"},
				},
			},
		},
	}
}

func createQuiz(t *testing.T, env *testEnv, public bool) string {
	t.Helper()
	status, resp := env.do(t, http.MethodPost, "/api/quiz", "alice", quizBody(public))
	if status != http.StatusCreated {
		t.Fatalf("create quiz: status %d message %q", status, resp.Message)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(resp.Data, &quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	return quiz.ID
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthIsRequired(t *testing.T) {
	env := newTestEnv(t)
	status, resp := env.do(t, http.MethodGet, "/api/user/stats", "", nil)
	if status != http.StatusUnauthorized || resp.Kind != "unauthorized" {
		t.Fatalf("expected 401 unauthorized, got %d %q", status, resp.Kind)
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/user/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", res.StatusCode)
	}
}

func TestDirectSubmissionFlow(t *testing.T) {
	env := newTestEnv(t)
	quizID := createQuiz(t, env, true)

	status, resp := env.do(t, http.MethodGet, "/api/quiz/public", "", nil)
	if status != http.StatusOK {
		t.Fatalf("list public: %d", status)
	}
	var views []app.QuizView
	if err := json.Unmarshal(resp.Data, &views); err != nil {
		t.Fatalf("decode views: %v", err)
	}
	if len(views) != 1 || views[0].Creator == nil || views[0].Creator.FirstName != "Alice" {
		t.Fatalf("unexpected public list %+v", views)
	}

	status, resp = env.do(t, http.MethodGet, "/api/quiz/"+quizID, "bob", nil)
	if status != http.StatusOK {
		t.Fatalf("get quiz: %d", status)
	}
	if bytes.Contains(resp.Data, []byte(`"isCorrect":true`)) {
		t.Fatalf("quiz for taking leaked correct answers: %s", resp.Data)
	}

	status, resp = env.do(t, http.MethodPost, "/api/quiz/"+quizID+"/submit", "bob", map[string]any{
		"answers":   []any{0, 1},
		"timeTaken": 42,
	})
	if status != http.StatusOK {
		t.Fatalf("submit: %d %q", status, resp.Message)
	}
	var result domain.SubmissionResult
	_ = json.Unmarshal(resp.Data, &result)
	if result.Score != 1 || result.TotalQuestions != 2 || result.Percentage != 50 {
		t.Fatalf("unexpected result %+v", result)
	}

	status, resp = env.do(t, http.MethodGet, "/api/user/stats", "bob", nil)
	if status != http.StatusOK {
		t.Fatalf("stats: %d", status)
	}
	var stats domain.UserStats
	_ = json.Unmarshal(resp.Data, &stats)
	if stats.QuizzesTaken != 1 || stats.AverageScore != 50 || stats.CategoryStats["Programming"].Count != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	status, resp = env.do(t, http.MethodGet, "/api/user/leaderboard?category=Programming", "alice", nil)
	if status != http.StatusOK {
		t.Fatalf("leaderboard: %d", status)
	}
	var lb domain.Leaderboard
	_ = json.Unmarshal(resp.Data, &lb)
	if len(lb.Entries) != 1 || lb.Entries[0].UserID != "bob" || lb.Entries[0].AverageScore != 50 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}

	status, resp = env.do(t, http.MethodGet, "/api/user/history?page=1&limit=5", "bob", nil)
	if status != http.StatusOK {
		t.Fatalf("history: %d", status)
	}
	var history app.HistoryPage
	_ = json.Unmarshal(resp.Data, &history)
	if history.Total != 1 || history.Entries[0].Title != "Go basics" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestSubmitWithoutAnswersIsInvalid(t *testing.T) {
	env := newTestEnv(t)
	quizID := createQuiz(t, env, true)
	status, resp := env.do(t, http.MethodPost, "/api/quiz/"+quizID+"/submit", "bob", map[string]any{"timeTaken": 3})
	if status != http.StatusBadRequest || resp.Kind != string(domain.KindInvalidInput) {
		t.Fatalf("expected 400 invalid_input, got %d %q", status, resp.Kind)
	}
}

func TestAssignmentFlow(t *testing.T) {
	env := newTestEnv(t)
	quizID := createQuiz(t, env, false)

	status, resp := env.do(t, http.MethodGet, "/api/quiz/"+quizID, "bob", nil)
	if status != http.StatusNotFound {
		t.Fatalf("private quiz must be hidden before assignment, got %d", status)
	}

	status, resp = env.do(t, http.MethodPost, "/api/quiz/"+quizID+"/assign", "alice", map[string]any{
		"assignedTo": []string{"bob", "carol", "nobody"},
	})
	if status != http.StatusCreated {
		t.Fatalf("assign: %d %q", status, resp.Message)
	}
	var outcome app.AssignOutcome
	_ = json.Unmarshal(resp.Data, &outcome)
	if len(outcome.Assigned) != 1 || len(outcome.Failures) != 2 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	assignmentID := outcome.Assigned[0].AssignmentID

	status, resp = env.do(t, http.MethodPost, "/api/quiz/"+quizID+"/assign", "alice", map[string]any{
		"assignedTo": []string{"bob"},
	})
	if status != http.StatusConflict || resp.Kind != string(domain.KindConflict) {
		t.Fatalf("expected duplicate conflict, got %d %q", status, resp.Kind)
	}

	status, _ = env.do(t, http.MethodPost, "/api/quiz/"+quizID+"/assign", "bob", map[string]any{
		"assignedTo": []string{"alice"},
	})
	if status != http.StatusForbidden {
		t.Fatalf("non-creator assign must be forbidden, got %d", status)
	}

	status, resp = env.do(t, http.MethodGet, "/api/quiz/assigned", "bob", nil)
	if status != http.StatusOK {
		t.Fatalf("list assigned: %d", status)
	}
	var assigned []app.AssignmentView
	_ = json.Unmarshal(resp.Data, &assigned)
	if len(assigned) != 1 || assigned[0].Status != domain.StatusPending || assigned[0].Quiz == nil {
		t.Fatalf("unexpected assigned list %+v", assigned)
	}

	status, _ = env.do(t, http.MethodGet, "/api/quiz/assigned/"+quizID, "bob", nil)
	if status != http.StatusOK {
		t.Fatalf("get assigned quiz: %d", status)
	}

	status, resp = env.do(t, http.MethodPost, "/api/assignments/"+assignmentID+"/submit", "bob", map[string]any{
		"answers":   []any{0, 0},
		"timeTaken": 30,
	})
	if status != http.StatusOK {
		t.Fatalf("submit assignment: %d %q", status, resp.Message)
	}

	status, resp = env.do(t, http.MethodPost, "/api/assignments/"+assignmentID+"/submit", "bob", map[string]any{
		"answers": []any{0, 0},
	})
	if status != http.StatusConflict || resp.Kind != string(domain.KindInvalidState) {
		t.Fatalf("resubmission must be rejected, got %d %q", status, resp.Kind)
	}

	status, resp = env.do(t, http.MethodGet, "/api/quiz/assignments/results", "alice", nil)
	if status != http.StatusOK {
		t.Fatalf("results: %d", status)
	}
	var results []app.AssignmentView
	_ = json.Unmarshal(resp.Data, &results)
	if len(results) != 1 || results[0].Status != domain.StatusCompleted || results[0].Score == nil || *results[0].Score != 2 {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	env := newTestEnv(t)
	quizID := createQuiz(t, env, true)

	status, resp := env.do(t, http.MethodPut, "/api/quiz/"+quizID, "bob", quizBody(true))
	if status != http.StatusForbidden || resp.Kind != string(domain.KindForbidden) {
		t.Fatalf("expected 403, got %d %q", status, resp.Kind)
	}

	status, _ = env.do(t, http.MethodGet, "/api/quiz/missing", "bob", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}

	bad := quizBody(true)
	bad["questions"] = []map[string]any{}
	status, resp = env.do(t, http.MethodPost, "/api/quiz", "alice", bad)
	if status != http.StatusBadRequest || resp.Message == "" {
		t.Fatalf("expected 400 with message, got %d %q", status, resp.Message)
	}

	status, _ = env.do(t, http.MethodDelete, "/api/quiz/"+quizID, "alice", nil)
	if status != http.StatusOK {
		t.Fatalf("delete: %d", status)
	}
	status, _ = env.do(t, http.MethodGet, "/api/quiz/"+quizID, "alice", nil)
	if status != http.StatusNotFound {
		t.Fatalf("deleted quiz must be gone, got %d", status)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[domain.Kind]int{
		domain.KindNotFound:     http.StatusNotFound,
		domain.KindConflict:     http.StatusConflict,
		domain.KindInvalidState: http.StatusConflict,
		domain.KindInvalidInput: http.StatusBadRequest,
		domain.KindForbidden:    http.StatusForbidden,
		domain.KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusFor(kind); got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
}
