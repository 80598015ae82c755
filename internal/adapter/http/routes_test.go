package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/suite"

	. "tasktracker/pkg/test"

	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/adapter/database/sqlite/repository"
	"tasktracker/internal/core/model/response"
	"tasktracker/internal/core/telemetry"
	"tasktracker/pkg/config"
)

type RouterSuite struct {
	suite.Suite
	db        *sqlite.DB
	cfg       *config.AppConfig
	container *Container
	router    *gin.Engine
}

func (s *RouterSuite) SetupTest() {
	s.db = InitTestDB()

	s.cfg = config.GetDefaultConfig()
	s.cfg.JWT.Secret = "router-test-secret"

	probe := telemetry.NewNoOpProbe()
	container, err := NewContainerWithStores(s.cfg, Dependencies{Telemetry: probe}, Stores{
		Accounts: repository.NewAccountRepository(s.db, probe),
		Tasks:    repository.NewTaskRepository(s.db, probe),
		Tokens:   repository.NewRefreshTokenRepository(s.db, probe),
	})
	Expect(err).NotTo(HaveOccurred())

	s.container = container
	s.router = SetupRouterForTests(container.Handlers())
}

func (s *RouterSuite) TearDownTest() {
	s.container.Close()
	s.db.Close()
}

func TestRouterSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) send(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func data[T any](w *httptest.ResponseRecorder) T {
	var envelope struct {
		Data T `json:"data"`
	}
	Expect(json.Unmarshal(w.Body.Bytes(), &envelope)).To(Succeed(), w.Body.String())

	return envelope.Data
}

func (s *RouterSuite) registerOn(router *gin.Engine, username string) string {
	w := s.send(router, http.MethodPost, "/auth/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())

	return data[response.AuthResponse](w).AccessToken
}

func (s *RouterSuite) TestHealth() {
	w := s.send(s.router, http.MethodGet, "/health", "", nil)

	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(w.Header().Get("X-Request-ID")).NotTo(BeEmpty())
}

func (s *RouterSuite) TestCORSPreflight() {
	w := s.send(s.router, http.MethodOptions, "/tasks", "", nil)

	Expect(w.Code).To(Equal(http.StatusNoContent))
	Expect(w.Header().Get("Access-Control-Allow-Headers")).To(ContainSubstring("X-Refresh-Token"))
}

func (s *RouterSuite) TestTaskScenario() {
	token := s.registerOn(s.router, "scenario")

	w := s.send(s.router, http.MethodPost, "/tasks", token, map[string]any{
		"title":    "Plan trip",
		"priority": "High",
		"category": "Travel",
	})
	Expect(w.Code).To(Equal(http.StatusCreated), w.Body.String())
	created := data[response.TaskResponse](w)
	path := "/tasks/" + created.UUID.String()

	w = s.send(s.router, http.MethodGet, "/tasks", token, nil)
	Expect(w.Code).To(Equal(http.StatusOK))
	page := data[response.PagedResponse[response.TaskResponse]](w)
	Expect(page.TotalCount).To(Equal(1))
	Expect(page.Items[0].UUID).To(Equal(created.UUID))

	w = s.send(s.router, http.MethodPut, path, token, map[string]any{"title": "Plan summer trip"})
	Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

	w = s.send(s.router, http.MethodGet, path, token, nil)
	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(data[response.TaskResponse](w).Title).To(Equal("Plan summer trip"))

	Expect(s.send(s.router, http.MethodDelete, path, token, nil).Code).To(Equal(http.StatusNoContent))
	Expect(s.send(s.router, http.MethodGet, path, token, nil).Code).To(Equal(http.StatusNotFound))
}

func (s *RouterSuite) TestResponseCacheIsPerAccountAndInvalidatedOnWrite() {
	cfg := *s.cfg
	cfg.CacheEnabled = true
	cfg.RateLimitEnabled = false
	router := SetupRouter(s.container.Handlers(), s.container.Dependencies, &cfg)

	token := s.registerOn(router, "cached")

	first := s.send(router, http.MethodGet, "/tasks", token, nil)
	Expect(first.Header().Get("X-Cache")).To(Equal("MISS"))

	second := s.send(router, http.MethodGet, "/tasks", token, nil)
	Expect(second.Header().Get("X-Cache")).To(Equal("HIT"))
	Expect(second.Body.String()).To(Equal(first.Body.String()))

	other := s.registerOn(router, "uncached")
	Expect(s.send(router, http.MethodGet, "/tasks", other, nil).Header().Get("X-Cache")).To(Equal("MISS"))

	Expect(s.send(router, http.MethodPost, "/tasks", token, map[string]any{"title": "Fresh"}).Code).To(Equal(http.StatusCreated))

	after := s.send(router, http.MethodGet, "/tasks", token, nil)
	Expect(after.Header().Get("X-Cache")).To(Equal("MISS"))
	Expect(data[response.PagedResponse[response.TaskResponse]](after).TotalCount).To(Equal(1))
}

func (s *RouterSuite) TestRateLimitOnLogin() {
	cfg := *s.cfg
	cfg.RateLimitEnabled = true
	cfg.RateLimitConfigs = map[string]config.RateLimitConfig{
		"POST /auth/login": {Requests: 2, Window: s.cfg.RateLimitConfigs["POST /auth/login"].Window},
	}
	router := SetupRouter(s.container.Handlers(), s.container.Dependencies, &cfg)

	body := map[string]any{"username": "nobody", "password": "password123"}

	Expect(s.send(router, http.MethodPost, "/auth/login", "", body).Code).To(Equal(http.StatusUnauthorized))
	Expect(s.send(router, http.MethodPost, "/auth/login", "", body).Code).To(Equal(http.StatusUnauthorized))

	w := s.send(router, http.MethodPost, "/auth/login", "", body)
	Expect(w.Code).To(Equal(http.StatusTooManyRequests))
	Expect(w.Body.String()).To(ContainSubstring("RATE_LIMITED"))
}

func (s *RouterSuite) TestContainerRejectsMissingSecret() {
	cfg := *s.cfg
	cfg.JWT.Secret = ""

	_, err := NewContainerWithStores(&cfg, Dependencies{}, s.container.Stores)
	Expect(err).To(HaveOccurred())
}
