package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"tasktracker/internal/adapter/database/memory"
	"tasktracker/internal/adapter/database/postgres"
	pgrepository "tasktracker/internal/adapter/database/postgres/repository"
	redisstore "tasktracker/internal/adapter/database/redis"
	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/adapter/database/sqlite/repository"
	"tasktracker/internal/adapter/http/handler"
	"tasktracker/internal/adapter/messaging/rabbitmq"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/service"
	"tasktracker/internal/core/telemetry"
	"tasktracker/internal/core/util"
	"tasktracker/pkg/auth"
	"tasktracker/pkg/config"
)

// Dependencies are built by the caller and outlive the container.
type Dependencies struct {
	Logger    *config.LokiLogger
	Metrics   *telemetry.AppMetrics
	Telemetry port.Telemetry
}

// Stores are the persistence ports of one storage backend.
type Stores struct {
	Accounts port.AccountRepository
	Tasks    port.TaskStore
	Tokens   port.RefreshTokenRepository
}

type Container struct {
	Config *config.AppConfig
	Dependencies
	Stores

	Cache  port.CacheRepository
	Locker port.Locker
	Events port.EventPublisher
	JWT    *auth.JWTManager

	Sessions       *service.SessionDirectory
	AuthService    port.AuthService
	AccountService port.AccountService
	TaskService    port.TaskService

	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	AccountHandler *handler.AccountHandler
	TaskHandler    *handler.TaskHandler

	closers []closer
}

type closer struct {
	name  string
	close func() error
}

// NewContainer opens the storage backend selected by cfg.Database.Driver,
// connects Redis and RabbitMQ when their URLs are set and wires every
// service and handler on top.
func NewContainer(ctx context.Context, cfg *config.AppConfig, deps Dependencies) (*Container, error) {
	c := &Container{Config: cfg}
	c.Dependencies = deps.withDefaults()

	if err := c.openStores(ctx); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.openInfrastructure(ctx); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.wire(); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// NewContainerWithStores wires services over already opened stores, with
// in-process locking and caching and no event broker.
func NewContainerWithStores(cfg *config.AppConfig, deps Dependencies, stores Stores) (*Container, error) {
	c := &Container{
		Config: cfg,
		Stores: stores,
		Cache:  memory.NewCacheRepository(),
		Locker: memory.NewLocker(),
		Events: rabbitmq.NewNoopPublisher(),
	}
	c.Dependencies = deps.withDefaults()

	if err := c.wire(); err != nil {
		return nil, err
	}

	return c, nil
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = config.NewNopLogger("tasktracker")
	}

	if d.Telemetry == nil {
		d.Telemetry = telemetry.NewNoOpProbe()
	}

	return d
}

func (c *Container) openStores(ctx context.Context) error {
	switch c.Config.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, postgres.Config{
			URL:            c.Config.Database.URL,
			MigrationsPath: c.Config.Database.MigrationsPath,
		})
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		c.onClose("postgres", func() error { db.Close(); return nil })

		c.Stores = Stores{
			Accounts: pgrepository.NewAccountRepository(db, c.Telemetry),
			Tasks:    pgrepository.NewTaskRepository(db, c.Telemetry),
			Tokens:   pgrepository.NewRefreshTokenRepository(db, c.Telemetry),
		}
	default:
		db, err := sqlite.NewDB(sqlite.Config{
			Path:           c.Config.Database.Path,
			MigrationsPath: c.Config.Database.MigrationsPath,
			LogQueries:     c.Config.GinMode == "debug",
		})
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		c.onClose("sqlite", db.Close)

		c.Stores = Stores{
			Accounts: repository.NewAccountRepository(db, c.Telemetry),
			Tasks:    repository.NewTaskRepository(db, c.Telemetry),
			Tokens:   repository.NewRefreshTokenRepository(db, c.Telemetry),
		}
	}

	return nil
}

func (c *Container) openInfrastructure(ctx context.Context) error {
	if c.Config.Redis.URL != "" {
		client, err := redisstore.NewClient(ctx, c.Config.Redis.URL)
		if err != nil {
			return err
		}
		c.onClose("redis", client.Close)

		locker, err := redisstore.NewLocker(client, "tasktracker:lock:")
		if err != nil {
			return err
		}

		c.Cache = redisstore.NewCacheRepository(client, "tasktracker:")
		c.Locker = locker
		slog.Info("Using Redis for locks and response cache")
	} else {
		c.Cache = memory.NewCacheRepository()
		c.Locker = memory.NewLocker()
		c.onClose("cache", c.Cache.Close)
	}

	if c.Config.AMQP.URL != "" {
		publisher, err := rabbitmq.NewPublisher(c.Config.AMQP.URL, c.Config.AMQP.Exchange)
		if err != nil {
			return err
		}
		c.Events = publisher
		c.onClose("rabbitmq", publisher.Close)
		slog.Info("Publishing domain events", "exchange", c.Config.AMQP.Exchange)
	} else {
		c.Events = rabbitmq.NewNoopPublisher()
	}

	return nil
}

func (c *Container) wire() error {
	tokens, err := auth.NewJWTManager(auth.Config{
		Secret:         c.Config.JWT.Secret,
		Issuer:         c.Config.JWT.Issuer,
		Audience:       c.Config.JWT.Audience,
		AccessTokenTTL: c.Config.JWT.AccessTokenTTL(),
	})
	if err != nil {
		return err
	}
	c.JWT = tokens

	opts := []service.Option{
		service.WithTelemetry(c.Telemetry),
		service.WithEvents(c.Events),
	}

	c.Sessions = service.NewSessionDirectory(c.Stores.Tokens, c.Locker, opts...)
	c.AuthService = service.NewAuthService(c.Accounts, c.Sessions, tokens,
		util.NewPasswordHasher(bcrypt.DefaultCost), c.Config.JWT.RefreshTokenTTL(), opts...)
	c.AccountService = service.NewAccountService(c.Accounts, c.Sessions, opts...)
	c.TaskService = service.NewTaskService(c.Tasks, opts...)

	c.AuthHandler = handler.NewAuthHandler(c.AuthService, c.Logger)
	c.SessionHandler = handler.NewSessionHandler(c.Sessions, c.Logger)
	c.AccountHandler = handler.NewAccountHandler(c.AccountService, c.Logger)
	c.TaskHandler = handler.NewTaskHandler(c.TaskService, c.Logger)

	return nil
}

func (c *Container) onClose(name string, fn func() error) {
	c.closers = append(c.closers, closer{name: name, close: fn})
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.closers[i].name, err))
		}
	}
	c.closers = nil

	return errors.Join(errs...)
}

// Handlers exposes the HTTP handlers and the token validator for routing.
func (c *Container) Handlers() HandlersConfig {
	return HandlersConfig{
		AuthHandler:    c.AuthHandler,
		SessionHandler: c.SessionHandler,
		AccountHandler: c.AccountHandler,
		TaskHandler:    c.TaskHandler,
		Tokens:         c.JWT,
		Cache:          c.Cache,
	}
}

func accountOwner(id int) string {
	return strconv.Itoa(id)
}
