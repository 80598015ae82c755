package service_test

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	. "tasktracker/pkg/test"

	"tasktracker/internal/adapter/database/memory"
	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/adapter/database/sqlite/repository"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/service"
	"tasktracker/internal/core/telemetry"
	"tasktracker/internal/core/util"
	"tasktracker/pkg/auth"
)

const refreshTTL = 7 * 24 * time.Hour

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []port.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event port.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Name)
	}
	return names
}

// fixture wires every service on an in-memory database.
type fixture struct {
	db       *sqlite.DB
	clock    *clock
	events   *recordingPublisher
	accounts port.AccountRepository
	tasks    port.TaskStore
	tokens   port.RefreshTokenRepository
	jwt      *auth.JWTManager
	sessions *service.SessionDirectory
	auth     *service.AuthService
	account  *service.AccountService
	task     *service.TaskService
}

func newFixture() *fixture {
	f := &fixture{
		db:     InitTestDB(),
		clock:  newClock(),
		events: &recordingPublisher{},
	}

	probe := telemetry.NewNoOpProbe()

	f.accounts = repository.NewAccountRepository(f.db, probe)
	f.tasks = repository.NewTaskRepository(f.db, probe)
	f.tokens = repository.NewRefreshTokenRepository(f.db, probe)

	manager, err := auth.NewJWTManager(auth.Config{
		Secret:         "service-test-secret",
		Issuer:         "tasktracker",
		Audience:       "tasktracker-clients",
		AccessTokenTTL: time.Hour,
	})
	if err != nil {
		panic(err)
	}
	f.jwt = manager.WithClock(f.clock.Now)

	opts := []service.Option{
		service.WithClock(f.clock.Now),
		service.WithTelemetry(probe),
		service.WithEvents(f.events),
	}

	f.sessions = service.NewSessionDirectory(f.tokens, memory.NewLocker(), opts...)
	f.auth = service.NewAuthService(f.accounts, f.sessions, f.jwt, util.NewPasswordHasher(bcrypt.MinCost), refreshTTL, opts...)
	f.account = service.NewAccountService(f.accounts, f.sessions, opts...)
	f.task = service.NewTaskService(f.tasks, opts...)

	return f
}

func (f *fixture) Close() {
	f.db.Close()
}
