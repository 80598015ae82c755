package config

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tasktracker/internal/core/telemetry"
	. "tasktracker/pkg"
	"tasktracker/pkg/auth"
)

func newTestLimiter() *RateLimiter {
	return NewRateLimiter(zap.NewNop(), telemetry.NewAppMetrics(prometheus.NewRegistry()))
}

func authenticated(accountID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.AccountIDKey, accountID)
		c.Next()
	}
}

func TestNewRateLimiter(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	Expect(rl).ToNot(BeNil())
	Expect(rl.cache).ToNot(BeNil())
	Expect(rl.config).To(HaveKey("default"))
	Expect(rl.config).To(HaveKey("POST /auth/login"))
	Expect(rl.logger).ToNot(BeNil())
	Expect(rl.metrics).ToNot(BeNil())
}

func TestRateLimitMiddleware_AllowedRequests(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(200))
		Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal("60"))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(59 - i)))
	}
}

func TestRateLimitMiddleware_ExceedLimit(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	router.POST("/auth/login", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	for i := 0; i < 12; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/auth/login", nil)
		router.ServeHTTP(w, req)

		if i < 10 {
			Expect(w.Code).To(Equal(200))
		} else {
			Expect(w.Code).To(Equal(http.StatusTooManyRequests))
			Expect(w.Body.String()).To(ContainSubstring("RATE_LIMITED"))
		}
	}
}

func TestRateLimitMiddleware_AccountBasedLimiting(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authenticated(123))
	router.Use(rl.RateLimitMiddleware())

	callCount := 0
	router.POST("/tasks", func(c *gin.Context) {
		callCount++
		c.JSON(201, gin.H{"count": callCount})
	})

	expectedRemaining := []int{19, 18, 17, 16, 15}

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/tasks", strings.NewReader(`{"title":"test"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(201))
		Expect(callCount).To(Equal(i + 1))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(expectedRemaining[i])))
	}
}

func TestRateLimitMiddleware_AccountsDoNotShareBudget(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	gin.SetMode(gin.TestMode)

	for _, id := range []int{1, 2} {
		router := gin.New()
		router.Use(authenticated(id))
		router.Use(rl.RateLimitMiddleware())
		router.DELETE("/tasks/:uuid", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/tasks/abc", nil)
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal("4"))
	}
}

func TestRateLimitMiddleware_RouteTemplateSharesBudget(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authenticated(7))
	router.Use(rl.RateLimitMiddleware())
	router.PUT("/tasks/:uuid", func(c *gin.Context) {
		c.JSON(200, gin.H{})
	})

	for i, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/tasks/"+id, strings.NewReader(`{}`))
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(200))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(9 - i)))
	}
}

func TestRateLimitMiddleware_WindowReset(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()
	rl.SetConfig("GET /test", RateLimitEndpointConfig{
		Requests: 2,
		Window:   50 * time.Millisecond,
		KeyFunc:  GetClientIP,
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	Expect(codes).To(Equal([]int{200, 200, 429}))

	time.Sleep(100 * time.Millisecond)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)
	Expect(w.Code).To(Equal(200))
}

func TestRateLimiterGetStats(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	stats := rl.GetStats()
	Expect(stats["active_entries"]).To(Equal(0))
	Expect(stats["configs"]).To(Equal(len(GetDefaultConfig().RateLimitConfigs) + 1))
}

func TestRateLimiterSetConfig(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	config := RateLimitEndpointConfig{
		Requests: 5,
		Window:   time.Minute,
		KeyFunc:  GetClientIP,
	}

	rl.SetConfig("/custom", config)

	Expect(rl.config["/custom"].Requests).To(Equal(config.Requests))
	Expect(rl.config["/custom"].Window).To(Equal(config.Window))
	Expect(rl.config["/custom"].KeyFunc).ToNot(BeNil())
}

func TestRateLimitMiddleware_NoDoubleCounting(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authenticated(123))
	router.Use(rl.RateLimitMiddleware())

	callCount := 0
	var callCountMutex sync.Mutex
	router.POST("/tasks", func(c *gin.Context) {
		callCountMutex.Lock()
		callCount++
		callCountMutex.Unlock()
		c.JSON(201, gin.H{})
	})

	numRequests := 10
	results := make([]int, numRequests)
	var wg sync.WaitGroup

	for i := 0; i < numRequests; i++ {
		index := i
		wg.Go(func() {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/tasks", strings.NewReader(`{"title":"test"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			remaining, _ := strconv.Atoi(w.Header().Get("X-RateLimit-Remaining"))
			results[index] = remaining
		})
	}

	wg.Wait()

	Expect(callCount).To(Equal(numRequests))

	expectedRemaining := []int{19, 18, 17, 16, 15, 14, 13, 12, 11, 10}
	sort.Ints(results)
	sort.Ints(expectedRemaining)

	Expect(results).To(Equal(expectedRemaining))
}
