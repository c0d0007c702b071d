package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"guardian/internal/chat"
	chatopenai "guardian/internal/chat/providers/openai"
	"guardian/internal/children"
	childrenstore "guardian/internal/children/store"
	"guardian/internal/consent"
	consentmetrics "guardian/internal/consent/metrics"
	consentstore "guardian/internal/consent/store"
	"guardian/internal/limits"
	limitsmetrics "guardian/internal/limits/metrics"
	limitsstate "guardian/internal/limits/store/state"
	"guardian/internal/moderation"
	moderationmetrics "guardian/internal/moderation/metrics"
	moderationopenai "guardian/internal/moderation/providers/openai"
	"guardian/internal/platform/config"
	"guardian/internal/platform/httpserver"
	"guardian/internal/platform/logger"
	platformmetrics "guardian/internal/platform/metrics"
	platformredis "guardian/internal/platform/redis"
	"guardian/internal/platform/token"
	"guardian/internal/retention"
	retentionmetrics "guardian/internal/retention/metrics"
	retentionstore "guardian/internal/retention/store"
	"guardian/internal/safety"
	safetymetrics "guardian/internal/safety/metrics"
	"guardian/internal/safety/notify"
	"guardian/internal/safety/relay"
	safetystore "guardian/internal/safety/store"
	httptransport "guardian/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires stores, services, and background workers, then runs the HTTP
// server, the retention sweeper, and the event relay until a signal arrives.
// Business logic lives in the internal service packages.
func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	policy := config.DefaultPolicy()
	if cfg.PolicyPath != "" {
		loaded, err := config.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return err
		}
		policy = loaded
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		log.Info("using postgres stores")
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
	}

	var (
		consentStore  consent.Store
		safetyStore   safety.Store
		ticketStore   retention.TicketStore
		childStore    children.Store
		limitsStore   limits.StateStore
		deadLetters   safety.DeadLetterStore
		dataCandidate retention.CandidateSource
		dataPurger    retention.Purger
	)
	if db != nil {
		consentStore = consentstore.NewPostgres(db)
		safetyStore = safetystore.NewPostgres(db)
		ticketStore = retentionstore.NewPostgres(db)
		childStore = childrenstore.NewPostgres(db)
		limitsStore = limitsstate.NewPostgres(db)
		deadLetters = safetystore.NewPostgresDeadLetterStore(db)
		dataStore := retentionstore.NewPostgresDataStore(db)
		dataCandidate, dataPurger = dataStore, dataStore
	} else {
		consentStore = consentstore.NewInMemory()
		safetyStore = safetystore.NewMemoryStore()
		ticketStore = retentionstore.NewMemoryStore()
		childStore = childrenstore.NewMemoryStore()
		limitsStore = limitsstate.NewInMemory()
		deadLetters = safetystore.NewMemoryDeadLetterStore()
		dataStore := retentionstore.NewMemoryDataStore()
		dataCandidate, dataPurger = dataStore, dataStore
	}

	// Redis, when configured, takes over the hot interaction state.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limitsStore = limitsstate.NewRedis(redisClient.Client)
		log.Info("using redis interaction state store")
	}

	var notifier safety.ParentNotifier
	if cfg.NotifyWebhookURL != "" {
		var contacts []string
		for _, c := range policy.Parental.EmergencyContacts {
			contacts = append(contacts, c.Email)
		}
		notifier, err = notify.NewWebhook(cfg.NotifyWebhookURL,
			notify.WithEmergencyContacts(contacts),
			notify.WithLogger(log),
		)
		if err != nil {
			return err
		}
	} else {
		notifier = notify.NewLog(log)
	}

	bus := safety.New(safetyStore,
		safety.WithLogger(log),
		safety.WithMetrics(safetymetrics.New(reg)),
		safety.WithNotifier(notifier),
		safety.WithDeadLetterStore(deadLetters),
	)

	scheduler, err := retention.New(ticketStore, dataPurger, policy.Privacy,
		retention.WithCandidateSource(dataCandidate),
		retention.WithEventPublisher(bus),
		retention.WithLogger(log),
		retention.WithMetrics(retentionmetrics.New(reg)),
	)
	if err != nil {
		return err
	}

	consentLedger, err := consent.New(consentStore,
		consent.WithLogger(log),
		consent.WithMetrics(consentmetrics.New(reg)),
		consent.WithTicketOpener(scheduler),
	)
	if err != nil {
		return err
	}
	// The hold check reads the ledger the scheduler feeds tickets into, so
	// it can only be attached once both sides exist.
	retention.WithHoldChecker(retention.NewConsentHolds(consentLedger))(scheduler)

	openaiClient := goopenai.NewClient(cfg.OpenAIAPIKey)
	scorer, err := moderationopenai.New(openaiClient)
	if err != nil {
		return err
	}
	moderator, err := moderation.New(scorer, policy.Moderation,
		moderation.WithLogger(log),
		moderation.WithMetrics(moderationmetrics.New(reg)),
	)
	if err != nil {
		return err
	}

	limiter, err := limits.New(limitsStore, policy.Limits,
		limits.WithLogger(log),
		limits.WithMetrics(limitsmetrics.New(reg)),
	)
	if err != nil {
		return err
	}

	profiles, err := children.New(childStore, children.WithLogger(log))
	if err != nil {
		return err
	}

	responder, err := chatopenai.New(openaiClient)
	if err != nil {
		return err
	}
	chatService, err := chat.New(profiles, consentLedger, moderator, limiter, responder, bus,
		chat.WithLogger(log),
	)
	if err != nil {
		return err
	}

	tokens := token.NewService(cfg.JWTSigningKey, "guardian", "guardian-parents")

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Chat:           chatService,
		Consents:       consentLedger,
		Children:       &httptransport.ChildrenDeps{Service: profiles, Ownership: profiles},
		Events:         bus,
		Usage:          limiter,
		Retention:      scheduler,
		TokenValidator: tokens,
		Logger:         log,
		Metrics:        platformmetrics.New(reg),
		Registry:       reg,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting guardian", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		err := scheduler.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if len(cfg.KafkaBrokers) > 0 {
		eventRelay, err := relay.New(ctx, cfg.KafkaBrokers, safetyStore,
			relay.WithLogger(log),
		)
		if err != nil {
			return err
		}
		group.Go(func() error {
			err := eventRelay.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return group.Wait()
}
