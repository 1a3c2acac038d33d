package services

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/middleware"
	"github.com/lac-hong-legacy/tutor_api/services/handlers"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type testServer struct {
	app    *fiber.App
	oracle *fakeOracle
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := newTestDB(t)
	jwtSvc := newTestJWT()
	board := NewLeaderboardService(db, nil)
	oracle := &fakeOracle{}
	mailer := NewEmailService(repositories.NewEmailRepository(db), &recordingTransport{})
	media := NewMediaService(db, newFakeStore())

	svc := &HttpService{
		auth:               middleware.NewAuthMiddleware(jwtSvc),
		rateLimit:          middleware.NewRateLimitMiddleware(NewRateLimitService(nil)),
		authHandler:        handlers.NewAuthHandler(NewAuthService(db, jwtSvc, board, &fakeGoogle{err: ErrGoogleNotConfigured})),
		userHandler:        handlers.NewUserHandler(NewUserService(db, media)),
		mediaHandler:       handlers.NewMediaHandler(media),
		lessonHandler:      handlers.NewLessonHandler(NewLessonService(db, oracle, board, mailer, time.Second)),
		emailHandler:       handlers.NewEmailHandler(mailer),
		leaderboardHandler: handlers.NewLeaderboardHandler(board),
	}
	return &testServer{app: svc.NewApp(), oracle: oracle}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := shared.JSONAPI.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := shared.JSONAPI.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return env
}

func (s *testServer) register(t *testing.T, email string) dto.RegisterResponse {
	t.Helper()
	status, raw := s.do(t, http.MethodPost, "/api/v1/user/register", "", map[string]string{
		"email": email, "username": "noa", "password": "Secret123",
	})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d: %s", status, raw)
	}
	return decode[dto.RegisterResponse](t, raw).Data
}

func TestHTTPLessonFlow(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "flow@example.com")

	status, raw := s.do(t, http.MethodPost, "/api/v1/user/login", "", map[string]string{
		"email": "FLOW@example.com", "password": "Secret123",
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d: %s", status, raw)
	}
	login := decode[dto.LoginResponse](t, raw)
	if login.Data.ID != user.ID || login.Data.AccessToken == "" {
		t.Fatalf("login = %+v", login.Data)
	}
	token := login.Data.AccessToken

	status, raw = s.do(t, http.MethodPost, "/api/v1/lessons/startNew", token, map[string]string{
		"subject": "Grade2_Multiplication",
	})
	if status != http.StatusCreated {
		t.Fatalf("start status = %d: %s", status, raw)
	}
	lessonID := decode[dto.StartLessonResponse](t, raw).Data.LessonID

	status, raw = s.do(t, http.MethodPost, "/api/v1/lessons/startNew", token, map[string]string{
		"subject": "Grade2_Multiplication",
	})
	if status != http.StatusConflict {
		t.Fatalf("second start status = %d: %s", status, raw)
	}
	if got := decode[dto.OpenLessonConflict](t, raw).Data.LessonID; got != lessonID {
		t.Errorf("conflict lesson id = %q, want %q", got, lessonID)
	}

	status, raw = s.do(t, http.MethodPost, "/api/v1/lessons/startNew/"+lessonID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("resume status = %d: %s", status, raw)
	}

	status, raw = s.do(t, http.MethodPost, "/api/v1/lessons/"+lessonID+"/chat", token, map[string]string{"question": "6*7"})
	if status != http.StatusOK {
		t.Fatalf("chat status = %d: %s", status, raw)
	}
	chat := decode[dto.ChatResponse](t, raw).Data
	if chat.Type != dto.ChatTypeMath || chat.Result == nil || *chat.Result != 42 || chat.Count != 1 {
		t.Errorf("chat = %+v", chat)
	}

	// routes are also mounted without the version prefix
	status, raw = s.do(t, http.MethodGet, "/lessons/"+lessonID+"/isOver", token, nil)
	if status != http.StatusOK {
		t.Fatalf("isOver status = %d: %s", status, raw)
	}
	if over := decode[dto.IsOverResponse](t, raw).Data; over.IsOver || over.Size != 0 {
		t.Errorf("isOver = %+v", over)
	}

	status, raw = s.do(t, http.MethodPost, "/api/v1/lessons/"+lessonID+"/finish", token, nil)
	if status != http.StatusOK {
		t.Fatalf("finish status = %d: %s", status, raw)
	}

	status, raw = s.do(t, http.MethodGet, "/api/v1/leaderboard", token, nil)
	if status != http.StatusOK {
		t.Fatalf("leaderboard status = %d: %s", status, raw)
	}
	board := decode[dto.LeaderboardResponse](t, raw).Data
	if len(board.TopUsers) != 1 || board.CurrentUser == nil || board.CurrentUser.Rank != 1 {
		t.Errorf("leaderboard = %+v", board)
	}
}

func TestHTTPAuthErrors(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "auth@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"missing bearer", http.MethodGet, "/api/v1/user/profile", "", nil, http.StatusUnauthorized},
		{"bad bearer", http.MethodGet, "/api/v1/user/profile", "not-a-token", nil, http.StatusForbidden},
		{"refresh token as bearer", http.MethodGet, "/api/v1/user/profile", user.RefreshToken, nil, http.StatusForbidden},
		{"profile", http.MethodGet, "/api/v1/user/profile", user.AccessToken, nil, http.StatusOK},
		{"wrong password", http.MethodPost, "/api/v1/user/login", "", map[string]string{"email": "auth@example.com", "password": "Wrong123"}, http.StatusBadRequest},
		{"duplicate email", http.MethodPost, "/api/v1/user/register", "", map[string]string{"email": "auth@example.com", "username": "noa", "password": "Secret123"}, http.StatusBadRequest},
		{"weak password", http.MethodPost, "/api/v1/user/register", "", map[string]string{"email": "new@example.com", "username": "noa", "password": "short"}, http.StatusBadRequest},
		{"google not configured", http.MethodPost, "/api/v1/user/google", "", map[string]string{"code": "c", "redirectUri": "https://app.example.com/cb"}, http.StatusInternalServerError},
		{"foreign lesson", http.MethodGet, "/api/v1/lessons/does-not-exist", user.AccessToken, nil, http.StatusNotFound},
		{"foreign mailbox", http.MethodGet, "/api/v1/email/getUserMail/someone-else", user.AccessToken, nil, http.StatusForbidden},
		{"bad leaderboard limit", http.MethodGet, "/api/v1/leaderboard?limit=0", "", nil, http.StatusBadRequest},
		{"anonymous leaderboard", http.MethodGet, "/leaderboard", "", nil, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", "", nil, http.StatusNotFound},
		{"ping", http.MethodGet, "/ping", "", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := s.do(t, tt.method, tt.path, tt.token, tt.body)
			if status != tt.want {
				t.Fatalf("status = %d, want %d: %s", status, tt.want, raw)
			}
			if env := decode[interface{}](t, raw); env.Code != tt.want {
				t.Errorf("envelope code = %d, want %d", env.Code, tt.want)
			}
		})
	}
}

func TestHTTPRefreshRotation(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "rotate@example.com")

	status, raw := s.do(t, http.MethodPost, "/api/v1/user/refresh", "", map[string]string{"refreshToken": user.RefreshToken})
	if status != http.StatusOK {
		t.Fatalf("refresh status = %d: %s", status, raw)
	}
	pair := decode[dto.TokenPair](t, raw).Data

	// replaying the rotated token revokes everything
	status, _ = s.do(t, http.MethodPost, "/api/v1/user/refresh", "", map[string]string{"refreshToken": user.RefreshToken})
	if status != http.StatusBadRequest {
		t.Fatalf("replay status = %d, want 400", status)
	}
	status, _ = s.do(t, http.MethodPost, "/api/v1/user/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	if status != http.StatusBadRequest {
		t.Fatalf("post-revocation status = %d, want 400", status)
	}
}

func TestHandleError(t *testing.T) {
	svc := &HttpService{}
	app := fiber.New(fiber.Config{ErrorHandler: svc.HandleError})

	errs := map[string]error{
		"/app":      shared.NewConflictError(errors.New("dup"), "Already there", nil),
		"/fiber":    fiber.NewError(http.StatusMethodNotAllowed, "Nope"),
		"/notfound": gorm.ErrRecordNotFound,
		"/plain":    errors.New("boom"),
	}
	for path, err := range errs {
		err := err
		app.Get(path, func(c *fiber.Ctx) error { return err })
	}

	want := map[string]int{
		"/app":      http.StatusConflict,
		"/fiber":    http.StatusMethodNotAllowed,
		"/notfound": http.StatusNotFound,
		"/plain":    http.StatusInternalServerError,
	}
	for path, code := range want {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != code {
			t.Errorf("%s status = %d, want %d", path, resp.StatusCode, code)
		}
		if env := decode[interface{}](t, raw); env.Code != code {
			t.Errorf("%s envelope code = %d, want %d", path, env.Code, code)
		}
	}
}
