package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/testutil"
	"lesson_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryMailer struct {
	mu     sync.Mutex
	to     []string
	bodies []string
}

func (m *memoryMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *memoryMailer) lastRecipient() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.to) == 0 {
		return ""
	}
	return m.to[len(m.to)-1]
}

var mailCode = regexp.MustCompile(`<strong>(\d+)</strong>`)

func (m *memoryMailer) code(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.bodies)
	match := mailCode.FindStringSubmatch(m.bodies[len(m.bodies)-1])
	require.Len(t, match, 2)
	return match[1]
}

type testApp struct {
	*App
	mailer *memoryMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)

	a := &App{Config: testutil.Config(t), DB: db, Redis: rdb}
	s := a.setupRouter(db, rdb)
	mailer := &memoryMailer{}
	s.verification.Mailer = mailer
	return &testApp{App: a, mailer: mailer}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

func login(t *testing.T, a *testApp, email string) string {
	t.Helper()
	w := a.request(t, http.MethodPost, "/api/register", "", gin.H{"name": "Student", "email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.request(t, http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	decode(t, w, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func createAdmin(t *testing.T, db *gorm.DB) string {
	t.Helper()
	return testutil.Token(t, testutil.CreateUser(t, db, "admin@example.com", model.Admin, 1))
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	w := a.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestQuizFlowOverHTTP(t *testing.T) {
	a := newTestApp(t)
	token := login(t, a, "student@example.com")
	quiz, qs := testutil.CreateQuiz(t, a.DB, "Python Loops", 60, "a", "b", "c")

	w := a.request(t, http.MethodGet, "/api/quizzes/by-title/Python%20Loops", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "correct_answer")
	assert.NotContains(t, w.Body.String(), "answer is a")

	w = a.request(t, http.MethodGet, "/api/quizzes/by-title/Nope", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.request(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/attempts", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var attempt model.QuizAttempt
	decode(t, w, &attempt)

	answers := []string{"a", "c", "c"}
	for i, ans := range answers {
		w = a.request(t, http.MethodPost, "/api/attempts/"+attempt.ID+"/responses", token,
			gin.H{"question_id": qs[i].ID, "user_answer": ans, "time_spent_seconds": 4})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	var result struct {
		IsCorrect      bool   `json:"is_correct"`
		CorrectAnswer  string `json:"correct_answer"`
		CorrectAnswers int    `json:"correct_answers"`
		Duplicate      bool   `json:"duplicate"`
	}
	w = a.request(t, http.MethodPost, "/api/attempts/"+attempt.ID+"/responses", token,
		gin.H{"question_id": qs[1].ID, "user_answer": "b"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.True(t, result.Duplicate)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, "b", result.CorrectAnswer)
	assert.Equal(t, 2, result.CorrectAnswers)

	w = a.request(t, http.MethodPost, "/api/attempts/"+attempt.ID+"/responses", token,
		gin.H{"question_id": qs[0].ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.request(t, http.MethodPost, "/api/attempts/"+attempt.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var done model.QuizAttempt
	decode(t, w, &done)
	require.NotNil(t, done.Score)
	assert.Equal(t, 67, *done.Score)
	assert.True(t, *done.Passed)

	w = a.request(t, http.MethodPost, "/api/attempts/"+attempt.ID+"/responses", token,
		gin.H{"question_id": qs[0].ID, "user_answer": "a"})
	assert.Equal(t, http.StatusConflict, w.Code)

	other := login(t, a, "other@example.com")
	w = a.request(t, http.MethodGet, "/api/attempts/"+attempt.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	empty, _ := testutil.CreateQuiz(t, a.DB, "Empty", 60)
	w = a.request(t, http.MethodPost, "/api/quizzes/"+empty.ID+"/attempts", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestQuizRoutesRequireAuth(t *testing.T) {
	a := newTestApp(t)
	w := a.request(t, http.MethodGet, "/api/quizzes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerificationFunctions(t *testing.T) {
	a := newTestApp(t)
	token := login(t, a, "student@example.com")

	w := a.request(t, http.MethodPost, "/functions/v1/send-verification-email", "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Missing or invalid authorization header"}`, w.Body.String())

	w = a.request(t, http.MethodPost, "/functions/v1/verify-email-code", "", gin.H{"code": "123456"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)

	w = a.request(t, http.MethodPost, "/functions/v1/send-verification-email", token, gin.H{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = a.request(t, http.MethodPost, "/functions/v1/send-verification-email", token, gin.H{})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	code := a.mailer.code(t)
	wrong := "000000"
	if code == wrong {
		wrong = "999999"
	}
	w = a.request(t, http.MethodPost, "/functions/v1/verify-email-code", token, gin.H{"code": wrong})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired verification code"}`, w.Body.String())

	w = a.request(t, http.MethodGet, "/api/verification/status", token, nil)
	assert.Contains(t, w.Body.String(), `"verified":false`)

	w = a.request(t, http.MethodPost, "/functions/v1/verify-email-code", token, gin.H{"code": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"success":true`)

	w = a.request(t, http.MethodGet, "/api/verification/status", token, nil)
	assert.Contains(t, w.Body.String(), `"verified":true`)
}

func TestSendVerificationEmailWithoutBody(t *testing.T) {
	a := newTestApp(t)
	token := login(t, a, "student@example.com")

	w := a.request(t, http.MethodPost, "/functions/v1/send-verification-email", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Equal(t, "student@example.com", a.mailer.lastRecipient())
}

func TestFunctionPreflight(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/verify-email-code", nil)
	req.Header.Set("Origin", "https://lessons.example.com")
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "x-client-info")
}

func TestNotesBehindVerification(t *testing.T) {
	a := newTestApp(t)
	token := login(t, a, "student@example.com")

	w := a.request(t, http.MethodGet, "/api/notes", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.request(t, http.MethodPost, "/functions/v1/send-verification-email", token, gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	w = a.request(t, http.MethodPost, "/functions/v1/verify-email-code", token, gin.H{"code": a.mailer.code(t)})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.request(t, http.MethodPost, "/api/notes", token, gin.H{"name": "loops.md", "content": "for x in xs"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var note model.PersonalFile
	decode(t, w, &note)

	var page struct {
		Total int64 `json:"total"`
	}
	w = a.request(t, http.MethodGet, "/api/notes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, int64(1), page.Total)

	w = a.request(t, http.MethodGet, "/api/notes/"+note.ID+"/download", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "for x in xs", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "loops.md")

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "todo.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("buy milk\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/notes/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.request(t, http.MethodDelete, "/api/notes/"+note.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.request(t, http.MethodGet, "/api/notes/"+note.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminQuizRoutes(t *testing.T) {
	a := newTestApp(t)
	student := login(t, a, "student@example.com")
	admin := createAdmin(t, a.DB)

	payload := gin.H{
		"title":         "Classes",
		"passing_score": 50,
		"questions": []gin.H{{
			"question_text":  "Keyword to define a class?",
			"options":        []gin.H{{"id": "a", "text": "class"}, {"id": "b", "text": "def"}},
			"correct_answer": "a",
		}},
	}

	w := a.request(t, http.MethodPost, "/api/admin/quizzes", student, payload)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.request(t, http.MethodPost, "/api/admin/quizzes", admin, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var detail struct {
		Quiz model.Quiz `json:"quiz"`
	}
	decode(t, w, &detail)

	w = a.request(t, http.MethodPost, "/api/admin/quizzes", admin, payload)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.request(t, http.MethodGet, "/api/admin/quizzes/"+detail.Quiz.ID+"/stats", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.request(t, http.MethodGet, "/api/admin/quizzes/"+detail.Quiz.ID+"/attempts?completed=maybe", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.request(t, http.MethodGet, "/api/admin/quizzes/"+detail.Quiz.ID+"/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, util.MimeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Classes-attempts.xlsx")

	w = a.request(t, http.MethodGet, "/api/admin/quizzes/import-template", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.request(t, http.MethodDelete, "/api/admin/quizzes/"+detail.Quiz.ID, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.request(t, http.MethodGet, "/api/admin/quizzes/"+detail.Quiz.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArtifactRoutes(t *testing.T) {
	a := newTestApp(t)
	admin := createAdmin(t, a.DB)

	w := a.request(t, http.MethodGet, "/api/artifacts?category=visualization", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "matplotlib-basics")

	w = a.request(t, http.MethodGet, "/api/artifacts/categories", "", nil)
	assert.Contains(t, w.Body.String(), "design-patterns")

	w = a.request(t, http.MethodPut, "/api/admin/artifacts/async-basics", admin, gin.H{"title": "Async", "category": "basics"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.request(t, http.MethodGet, "/api/artifacts/async-basics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.request(t, http.MethodDelete, "/api/admin/artifacts/async-basics", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConfigReloadUpdatesUploadLimit(t *testing.T) {
	a := newTestApp(t)
	a.registerConfigCallbacks(a.services)
	admin := createAdmin(t, a.DB)

	reloaded := *a.Config
	reloaded.Notes.MaxUploadMB = 0

	// 热更新与请求并发读取上限
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.applyConfig(&reloaded)
	}()
	for i := 0; i < 100; i++ {
		_ = a.services.personalFile.MaxUpload()
	}
	<-done

	assert.Equal(t, int64(0), a.services.personalFile.MaxUpload())

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "questions.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a spreadsheet"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/quizzes/any/import", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}
