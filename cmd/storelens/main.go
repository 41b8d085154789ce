package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"goa.design/clue/debug"
	"goa.design/clue/health"
	"goa.design/clue/log"

	"github.com/storelens/storelens/config"
	redisstore "github.com/storelens/storelens/features/cache/redis"
	"github.com/storelens/storelens/features/datasource/shopify"
	"github.com/storelens/storelens/features/model/anthropic"
	"github.com/storelens/storelens/features/model/middleware"
	"github.com/storelens/storelens/features/model/openai"
	"github.com/storelens/storelens/runtime/agent"
	"github.com/storelens/storelens/runtime/agent/cache"
	"github.com/storelens/storelens/runtime/agent/cache/inmem"
	"github.com/storelens/storelens/runtime/agent/metrics"
	"github.com/storelens/storelens/runtime/agent/model"
	"github.com/storelens/storelens/runtime/agent/telemetry"
	"github.com/storelens/storelens/service"
)

func main() {
	var (
		configF = flag.String("config", "", "Path to YAML configuration file")
		addrF   = flag.String("addr", "", "Listen address (overrides configuration)")
		dbgF    = flag.Bool("debug", false, "Log request and response bodies")
	)
	flag.Parse()

	// Setup logger.
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))

	cfg, err := config.Load(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "invalid configuration")
	}
	if *addrF != "" {
		cfg.HTTPAddr = *addrF
	}
	if *dbgF {
		cfg.Debug = true
	}
	if cfg.Debug {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	// Text-generation backend.
	var mdl model.Client
	switch cfg.Model.Provider {
	case "anthropic":
		mdl, err = anthropic.NewFromAPIKey(cfg.Model.APIKey, cfg.Model.Name)
	default:
		mdl, err = openai.NewFromAPIKey(cfg.Model.APIKey, cfg.Model.Name)
	}
	if err != nil {
		log.Fatalf(ctx, err, "initialize %s client", cfg.Model.Provider)
	}
	if cfg.Model.TPMLimit > 0 {
		limiter := middleware.NewAdaptiveRateLimiter(cfg.Model.TPMLimit, 2*cfg.Model.TPMLimit)
		mdl = limiter.Middleware()(mdl)
	}

	// Commerce data source.
	sources := shopify.NewProvider(shopify.WithAPIVersion(cfg.Shopify.APIVersion))

	// Answer cache: Redis when configured, in-memory otherwise.
	var (
		store   cache.Store
		pingers []health.Pinger
	)
	if cfg.Cache.RedisAddr != "" {
		rdb := goredis.NewClient(redisstore.ClientOptions(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword))
		rstore, err := redisstore.New(redisstore.Options{Client: rdb, TTL: cfg.Cache.TTL})
		if err != nil {
			log.Fatalf(ctx, err, "initialize redis cache")
		}
		store = rstore
		pingers = append(pingers, rstore)
	} else {
		store = inmem.New(inmem.WithTTL(cfg.Cache.TTL))
	}

	collector := metrics.NewCollector()
	ag, err := agent.New(mdl, sources, store, agent.Options{
		Mode:            agent.Mode(cfg.Mode),
		MaxAttempts:     cfg.MaxAttempts,
		CallTimeout:     cfg.CallTimeout,
		Metrics:         collector,
		Logger:          telemetry.NewClueLogger(),
		Instrumentation: telemetry.NewClueMetrics(),
	})
	if err != nil {
		log.Fatalf(ctx, err, "initialize agent")
	}

	svc, err := service.New(ag, collector, service.Options{
		HistoryWindow: cfg.HistoryWindow,
		Pingers:       pingers,
		Debug:         cfg.Debug,
	})
	if err != nil {
		log.Fatalf(ctx, err, "initialize service")
	}

	var handler http.Handler = svc.Handler()
	if cfg.Debug {
		// Log query and response bodies if debug logs are enabled.
		handler = debug.HTTP()(handler)
	}
	handler = log.HTTP(ctx)(handler)

	// Create channel used by both the signal handler and server goroutine to
	// notify the main goroutine when to stop the server.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler, ReadHeaderTimeout: time.Second * 60}
	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			log.Printf(ctx, "HTTP server listening on %q (mode %s, provider %s)", cfg.HTTPAddr, cfg.Mode, cfg.Model.Provider)
			errc <- srv.ListenAndServe()
		}()

		<-ctx.Done()
		log.Printf(ctx, "shutting down HTTP server at %q", cfg.HTTPAddr)

		// Shutdown gracefully with a 30s timeout.
		sctx, scancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Printf(ctx, "failed to shutdown: %v", err)
		}
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)
	cancel()
	wg.Wait()
	log.Printf(ctx, "exited")
}
