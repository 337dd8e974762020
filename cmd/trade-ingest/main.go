package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-ingest/internal/api"
	"github.com/Checker-Finance/trade-ingest/internal/dedupe"
	"github.com/Checker-Finance/trade-ingest/internal/egress"
	"github.com/Checker-Finance/trade-ingest/internal/ingest"
	"github.com/Checker-Finance/trade-ingest/internal/rate"
	"github.com/Checker-Finance/trade-ingest/internal/refdata"
	internalsecrets "github.com/Checker-Finance/trade-ingest/internal/secrets"
	"github.com/Checker-Finance/trade-ingest/internal/source"
	"github.com/Checker-Finance/trade-ingest/pkg/config"
	"github.com/Checker-Finance/trade-ingest/pkg/logger"
	pkgsecrets "github.com/Checker-Finance/trade-ingest/pkg/secrets"
	"github.com/Checker-Finance/trade-ingest/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [trade-ingest]...")

	// --- Symbol reference data ---
	symbols, err := refdata.Load(ctx, cfg.PostgresDSN, cfg.SymbolTable, cfg.Symbols, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to load symbol reference data",
			"dsn", utils.MaskDSN(cfg.PostgresDSN),
			"error", err)
	}
	validator := ingest.NewValidator(symbols)

	// --- Dedupe guard (Redis when configured, in-memory otherwise) ---
	stopCleaner := make(chan struct{})
	var guard dedupe.Guard
	if cfg.RedisAddr != "" {
		redisGuard, gerr := dedupe.NewRedis(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPass, cfg.DedupeTTL, logg.Desugar())
		if gerr != nil {
			logg.Fatalw("failed to init dedupe guard", "error", gerr)
		}
		guard = redisGuard
	} else {
		memGuard := dedupe.NewMemory(cfg.DedupeTTL)
		go memGuard.StartCleaner(cfg.CleanupFreq, stopCleaner)
		guard = memGuard
		logg.Info("REDIS_ADDR not configured; dedupe window is in-memory only")
	}

	// --- Candidate source ---
	src := buildSource(ctx, cfg, logg, stopCleaner)

	// --- Ingestion service ---
	queue := ingest.NewChanQueue(cfg.QueueCapacity)
	svc := ingest.NewService(cfg, logg.Desugar(), src, validator, queue, guard)
	svc.Start(ctx)

	// --- Egress sinks ---
	var sinks []egress.Sink
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub, perr := egress.NewNATS(nc, cfg.NATSSubject, cfg.ServiceName)
		if perr != nil {
			logg.Fatalw("failed to init NATS publisher", "error", perr)
		}
		sinks = append(sinks, pub)
	}
	var rabbit *egress.RabbitPublisher
	if cfg.RabbitURL != "" {
		rabbit, err = egress.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange, logg.Desugar())
		if err != nil {
			logg.Fatalw("failed to connect to RabbitMQ", "error", err)
		}
		sinks = append(sinks, rabbit)
	}

	bridge := egress.NewBridge(logg.Desugar(), queue, sinks, cfg.EgressWorkers)
	go func() {
		if berr := bridge.Run(ctx); berr != nil {
			logg.Warnw("egress.bridge_failed", "error", berr)
		}
	}()

	// --- Fiber HTTP server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})
	api.RegisterRoutes(app, nc, guard, svc)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if lerr := app.Listen(fmt.Sprintf(":%d", cfg.Port)); lerr != nil {
			logg.Fatalw("fiber.listen_failed", "error", lerr)
		}
	}()

	// --- Main process stays alive until interrupted ---
	logg.Infow("[trade-ingest] running",
		"env", cfg.Env,
		"source", src.Name(),
		"queue_capacity", queue.Cap(),
		"sinks", len(sinks))

	<-ctx.Done()
	logg.Info("shutting down [trade-ingest]...")

	close(stopCleaner)
	svc.Stop()
	drainSummary(queue, logg)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if rabbit != nil {
		if err := rabbit.Close(); err != nil {
			logg.Warnw("rabbit.close_failed", "error", err)
		}
	}
	if err := guard.Close(); err != nil {
		logg.Warnw("dedupe.close_failed", "error", err)
	}
	if err := src.Close(); err != nil {
		logg.Warnw("source.close_failed", "error", err)
	}
}

// buildSource assembles the candidate source selected by SOURCE_MODE.
func buildSource(ctx context.Context, cfg *config.Config, logg *zap.SugaredLogger, stopCleaner chan struct{}) source.Source {
	simCfg := source.SimulationConfig{
		Symbols:     cfg.Symbols,
		QuantityMin: cfg.QuantityMin,
		QuantityMax: cfg.QuantityMax,
		PriceMin:    cfg.PriceMin,
		PriceMax:    cfg.PriceMax,
	}

	switch cfg.SourceMode {
	case "api":
		sim := source.NewSimulation(simCfg, nil)
		client := buildFeedClient(ctx, cfg, logg, stopCleaner)
		return source.NewAPI(logg.Desugar(), client, sim, nil)

	case "stream":
		stream := source.NewStream(cfg.StreamURL, logg.Desugar())
		if err := stream.Connect(ctx); err != nil {
			logg.Fatalw("failed to connect to stream", "url", cfg.StreamURL, "error", err)
		}
		return stream

	case "simulation", "":
		return source.NewSimulation(simCfg, nil)

	default:
		logg.Fatalw("unknown SOURCE_MODE", "mode", cfg.SourceMode)
		return nil
	}
}

// buildFeedClient resolves feed credentials and builds the polling client.
// Without a resolvable base URL the API source runs in simulated mode.
func buildFeedClient(ctx context.Context, cfg *config.Config, logg *zap.SugaredLogger, stopCleaner chan struct{}) *source.Client {
	var provider pkgsecrets.Provider
	awsProvider, err := pkgsecrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		logg.Warnw("failed to create AWS Secrets Manager provider; using env credentials",
			"error", err)
	} else {
		provider = awsProvider
	}

	credsCache := pkgsecrets.NewCache[internalsecrets.Credentials](cfg.SecretsTTL)
	go credsCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

	resolver := internalsecrets.NewResolver(
		logg.Desugar(),
		cfg.Env,
		provider,
		credsCache,
		internalsecrets.Credentials{BaseURL: cfg.APIBaseURL, APIKey: cfg.APIKey},
	)

	creds, err := resolver.Resolve(ctx)
	if err != nil || creds.BaseURL == "" {
		logg.Infow("no feed credentials configured; API source runs simulated")
		return nil
	}

	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.APIPollRate,
		Burst:             cfg.APIBurst,
		Cooldown:          1 * time.Second,
	})

	logg.Infow("feed client configured",
		"base_url", creds.BaseURL,
		"api_key", utils.MaskKey(creds.APIKey))
	return source.NewClient(logg.Desugar(), rateMgr, creds.BaseURL, creds.APIKey)
}

// drainSummary empties whatever is left in the queue after the worker stops
// and logs a per-symbol roll-up of the run.
func drainSummary(queue ingest.Queue, logg *zap.SugaredLogger) {
	type symbolAgg struct {
		count    int
		quantity int
		minPrice float64
		maxPrice float64
	}

	agg := make(map[string]*symbolAgg)
	total := 0
	for {
		trade, ok := queue.TryGet()
		if !ok {
			break
		}
		total++
		a := agg[trade.Symbol]
		if a == nil {
			a = &symbolAgg{minPrice: trade.Price, maxPrice: trade.Price}
			agg[trade.Symbol] = a
		}
		a.count++
		a.quantity += trade.Quantity
		if trade.Price < a.minPrice {
			a.minPrice = trade.Price
		}
		if trade.Price > a.maxPrice {
			a.maxPrice = trade.Price
		}
	}

	if total == 0 {
		logg.Info("queue drained; no records left behind")
		return
	}

	for symbol, a := range agg {
		logg.Infow("undelivered trades",
			"symbol", symbol,
			"count", a.count,
			"total_quantity", a.quantity,
			"min_price", a.minPrice,
			"max_price", a.maxPrice)
	}
	logg.Infow("queue drained", "remaining", total, "symbols", len(agg))
}
