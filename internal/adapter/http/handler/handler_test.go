package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	. "tasktracker/pkg/test"

	"tasktracker/internal/adapter/database/memory"
	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/adapter/database/sqlite/repository"
	"tasktracker/internal/adapter/http/middleware"
	"tasktracker/internal/core/model/response"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/service"
	"tasktracker/internal/core/telemetry"
	"tasktracker/internal/core/util"
	"tasktracker/pkg/auth"
	"tasktracker/pkg/config"
)

const testPassword = "password123"

// apiFixture serves every handler over an in-memory database.
type apiFixture struct {
	DB       *sqlite.DB
	Router   *gin.Engine
	Accounts port.AccountRepository
	Tasks    port.TaskStore
	Tokens   port.RefreshTokenRepository
	JWT      *auth.JWTManager
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{DB: InitTestDB()}

	probe := telemetry.NewNoOpProbe()
	logger := config.NewNopLogger("tasktracker-test")

	f.Accounts = repository.NewAccountRepository(f.DB, probe)
	f.Tasks = repository.NewTaskRepository(f.DB, probe)
	f.Tokens = repository.NewRefreshTokenRepository(f.DB, probe)

	jwt, err := auth.NewJWTManager(auth.Config{
		Secret:         "handler-test-secret",
		Issuer:         "tasktracker",
		Audience:       "tasktracker-clients",
		AccessTokenTTL: time.Hour,
	})
	if err != nil {
		panic(err)
	}
	f.JWT = jwt

	opts := []service.Option{service.WithTelemetry(probe)}

	sessions := service.NewSessionDirectory(f.Tokens, memory.NewLocker(), opts...)
	authSvc := service.NewAuthService(f.Accounts, sessions, jwt, util.NewPasswordHasher(bcrypt.MinCost), 7*24*time.Hour, opts...)
	accountSvc := service.NewAccountService(f.Accounts, sessions, opts...)
	taskSvc := service.NewTaskService(f.Tasks, opts...)

	f.Router = setupTestRouter(
		NewAuthHandler(authSvc, logger),
		NewSessionHandler(sessions, logger),
		NewAccountHandler(accountSvc, logger),
		NewTaskHandler(taskSvc, logger),
		jwt,
	)

	return f
}

func (f *apiFixture) Close() {
	f.DB.Close()
}

// setupTestRouter mirrors the production route table without importing the
// router package.
func setupTestRouter(a *AuthHandler, s *SessionHandler, acc *AccountHandler, t *TaskHandler, tokens port.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CurrentMiddleware())

	public := router.Group("/")
	{
		public.POST("/auth/register", a.Register)
		public.POST("/auth/login", a.Login)
		public.POST("/auth/refresh", a.Refresh)
	}

	protected := router.Group("/")
	protected.Use(auth.GinJwtMiddleware(tokens))
	{
		protected.POST("/auth/logout", a.Logout)

		protected.GET("/sessions", s.ListSessions)
		protected.DELETE("/sessions/:id", s.RevokeSession)
		protected.POST("/sessions/revoke-others", s.RevokeOtherSessions)

		protected.GET("/me", acc.Me)
		protected.POST("/me/deactivate", acc.Deactivate)
		protected.DELETE("/me", acc.Delete)

		protected.GET("/tasks", t.ListTasks)
		protected.POST("/tasks", t.CreateTask)
		protected.GET("/tasks/:uuid", t.GetTask)
		protected.PUT("/tasks/:uuid", t.UpdateTask)
		protected.DELETE("/tasks/:uuid", t.DeleteTask)
		protected.PATCH("/tasks/:uuid/complete", t.CompleteTask)
		protected.PATCH("/tasks/:uuid/incomplete", t.IncompleteTask)
	}

	return router
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// perform sends body as JSON unless it is a string, which is sent verbatim.
func (f *apiFixture) perform(method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	var payload []byte

	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
	}

	req, _ := http.NewRequest(method, path, bytes.NewReader(payload))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	f.Router.ServeHTTP(w, req)

	return w
}

func decodeData[T any](w *httptest.ResponseRecorder) T {
	var envelope struct {
		Data T `json:"data"`
	}

	Expect(json.Unmarshal(w.Body.Bytes(), &envelope)).To(Succeed(), w.Body.String())

	return envelope.Data
}

func decodeError(w *httptest.ResponseRecorder) response.ResponseError {
	var envelope response.ErrorResponse

	Expect(json.Unmarshal(w.Body.Bytes(), &envelope)).To(Succeed(), w.Body.String())

	return envelope.Error
}

func errorFields(e response.ResponseError) []string {
	fields := make([]string, 0, len(e.Errors))
	for _, v := range e.Errors {
		fields = append(fields, v.Field)
	}

	return fields
}

func (f *apiFixture) register(username string) response.AuthResponse {
	w := f.perform(http.MethodPost, "/auth/register", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": testPassword,
	})
	Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())

	return decodeData[response.AuthResponse](w)
}

func (f *apiFixture) login(username string) response.AuthResponse {
	w := f.perform(http.MethodPost, "/auth/login", map[string]any{
		"username": username,
		"password": testPassword,
	})
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

	return decodeData[response.AuthResponse](w)
}

func (f *apiFixture) createTask(token string, body map[string]any) response.TaskResponse {
	w := f.perform(http.MethodPost, "/tasks", body, withBearer(token))
	Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())

	return decodeData[response.TaskResponse](w)
}
