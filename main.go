package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"lexiboard/api"
	"lexiboard/board"
	"lexiboard/domain"
	"lexiboard/events"
	"lexiboard/storage"
)

func main() {
	logger := log.New()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		logger.SetLevel(log.DebugLevel)
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		logger.Fatal("missing redis config")
	}
	rc := redis.NewClient(parseRedisOptions(redisConn))

	store := newStore(rc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := api.NewHub()
	go hub.Run(ctx, events.Subscribe(ctx, rc, events.UpdatesChannel))

	publishers := events.Multi{events.NewRedisPublisher(rc, events.UpdatesChannel)}
	if queueName := os.Getenv("EVENTS_QUEUE"); queueName != "" {
		connStr := os.Getenv("STORAGE_CONNECTION_STRING")
		if connStr == "" {
			logger.Fatal("EVENTS_QUEUE requires STORAGE_CONNECTION_STRING")
		}
		qp, err := events.NewQueuePublisher(connStr, queueName)
		if err != nil {
			logger.Fatalf("events queue: %v", err)
		}
		publishers = append(publishers, qp)
	}
	dispatcher := events.NewDispatcher(publishers, events.DispatcherConfig{
		Workers:        envInt(logger, "EVENT_WORKERS", 0),
		Buffer:         envInt(logger, "EVENT_BUFFER", 0),
		HandoffTimeout: envDuration(logger, "EVENT_HANDOFF_TIMEOUT", 0),
	}, logger)

	svc := board.NewService(store, logger,
		board.WithIDGenerator(domain.NewIDGenerator(os.Getenv("ID_STRATEGY"))),
		board.WithPublisher(dispatcher),
	)

	deduper := api.NewRedisDeduper(rc, envDuration(logger, "DEDUPER_TTL", 24*time.Hour))

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.SonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, api.HeaderIdempotencyKey},
	}))
	e.Use(api.GzipRequestBodies())
	if on, err := strconv.ParseBool(os.Getenv("ENABLE_PPROF")); err == nil && on {
		pprof.Register(e)
	}

	health := func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	api.Register(e, svc, newAuthenticator(logger), deduper, hub, health, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	} else if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	go func() {
		if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	dispatcher.Close()
	if err := rc.Close(); err != nil {
		logger.WithError(err).Warn("redis close")
	}
}

// parseRedisOptions accepts a redis:// URL or the Azure form
// "host:port,password=...,ssl=True".
func parseRedisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func newStore(rc *redis.Client, logger *log.Logger) board.Store {
	kind := strings.ToLower(os.Getenv("BOARD_STORE"))
	if kind == "" || kind == "redis" {
		return storage.NewRedisStore(rc)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tableName := os.Getenv("BOARD_TABLE")
	if connStr == "" || tableName == "" {
		logger.Fatal("missing storage config")
	}
	table, err := storage.NewTableStore(connStr, tableName)
	if err != nil {
		logger.Fatalf("table store: %v", err)
	}

	switch kind {
	case "table":
		return table
	case "table+cache":
		return storage.NewCache(table, rc, envDuration(logger, "CACHE_TTL", 5*time.Minute))
	default:
		logger.Fatalf("unsupported BOARD_STORE value %q", kind)
		return nil
	}
}

func newAuthenticator(logger *log.Logger) api.Authenticator {
	if os.Getenv("AUTH_DISABLED") == "1" {
		logger.Warn("authentication disabled; every request acts as the local user")
		return api.Anonymous{UserID: api.LocalUserID}
	}

	audience := os.Getenv("AUTH0_AUDIENCE")
	switch mode := strings.ToLower(os.Getenv("LOCAL_AUTH_MODE")); mode {
	case "":
	case "hs256":
		secret := os.Getenv("LOCAL_AUTH_SHARED_SECRET")
		if secret == "" {
			logger.Fatal("LOCAL_AUTH_SHARED_SECRET must be set when LOCAL_AUTH_MODE=hs256")
		}
		return api.NewLocalAuth([]byte(secret), audience, "")
	default:
		logger.Fatalf("unsupported LOCAL_AUTH_MODE value %q", mode)
	}

	authDomain := os.Getenv("AUTH0_DOMAIN")
	if audience == "" || authDomain == "" {
		logger.Fatal("missing Auth0 config")
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", authDomain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		logger.Fatalf("jwks: %v", err)
	}
	return api.NewAuth(jwks, audience, "https://"+authDomain+"/", envDuration(logger, "JWKS_CACHE_TTL", api.DefaultJWKSCacheTTL))
}

func envInt(logger *log.Logger, name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Fatalf("invalid %s: must be a positive integer", name)
	}
	return n
}

func envDuration(logger *log.Logger, name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logger.Fatalf("invalid %s: %v", name, v)
	}
	return d
}
