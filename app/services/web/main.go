package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"golang.org/x/sync/errgroup"

	"github.com/christianberko/orobor-website/core/httpio"
	"github.com/christianberko/orobor-website/core/logger"
	"github.com/christianberko/orobor-website/core/publisher"
	"github.com/christianberko/orobor-website/founder"
	"github.com/christianberko/orobor-website/orders"
	"github.com/christianberko/orobor-website/ups"
)

type config struct {
	Addr        string   `env:"OROBOR_ADDR" envDefault:":8080"`
	PublicDir   string   `env:"OROBOR_PUBLIC_DIR" envDefault:"./public"`
	DBPath      string   `env:"OROBOR_DB_PATH" envDefault:"/tmp/orobor-orders"`
	CORSOrigins []string `env:"OROBOR_CORS_ORIGINS" envSeparator:"," envDefault:"https://orobor.com,https://www.orobor.com"`
	RateLimit   int      `env:"OROBOR_RATE_LIMIT" envDefault:"100"`

	UPS struct {
		ClientID     string `env:"UPS_CLIENT_ID"`
		ClientSecret string `env:"UPS_CLIENT_SECRET"`
		BaseURL      string `env:"UPS_BASE_URL" envDefault:"https://www.ups.com/api/shipments"`
		OAuthURL     string `env:"UPS_OAUTH_URL" envDefault:"https://www.ups.com/security/v1/oauth/token"`
	}

	Auth struct {
		ProviderURL string   `env:"AUTH_PROVIDER_URL"`
		ProviderKey string   `env:"AUTH_PROVIDER_KEY"`
		JWTSecret   string   `env:"AUTH_JWT_SECRET"`
		Founders    []string `env:"FOUNDER_EMAILS" envSeparator:"," envDefault:"jakob@orobor.com,jonah@orobor.com"`
	}

	Kafka struct {
		Server string `env:"KAFKA_SERVER"`
	}
}

type application struct {
	config   config
	log      *slog.Logger
	labels   labelCreator
	store    *orders.Store
	gate     *founder.Gate
	identity identityClient
	started  time.Time
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "address to listen on, i.e 127.0.0.1:8000")
	flag.Parse()

	if !strings.HasPrefix(cfg.Addr, ":") && !strings.Contains(cfg.Addr, ":") {
		cfg.Addr = ":" + cfg.Addr
	}

	log := logger.NewLogger("web")

	// Open the embedded database holding order records.
	db, err := badger.Open(badger.DefaultOptions(cfg.DBPath))
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	defer db.Close()
	store := orders.NewStore(db)

	upsClient := ups.NewClient(ups.Config{
		ClientID:     cfg.UPS.ClientID,
		ClientSecret: cfg.UPS.ClientSecret,
		BaseURL:      cfg.UPS.BaseURL,
		OAuthURL:     cfg.UPS.OAuthURL,
	}, log).WithOrderSaver(store)

	// Kafka is optional: without a broker the site still sells labels,
	// it just emits no events.
	if cfg.Kafka.Server != "" {
		p, err := publisher.New(&kafka.ConfigMap{
			"bootstrap.servers": cfg.Kafka.Server,
		})
		if err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
		defer p.Close()
		upsClient.WithEventPublisher(p)
	} else {
		log.Info("No kafka server configured, label events disabled")
	}

	app := &application{
		config:   cfg,
		log:      log,
		labels:   upsClient,
		store:    store,
		gate:     founder.NewGate(cfg.Auth.JWTSecret, cfg.Auth.Founders, log),
		identity: founder.NewProvider(cfg.Auth.ProviderURL, cfg.Auth.ProviderKey),
		started:  time.Now(),
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      app.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Prepare a context to catch cancelation signals.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Received termination signal. Shutting down server")

		tCtx, tcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer tcancel()

		return srv.Shutdown(tCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error(err.Error())
	}
}

func (app *application) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(logger.LoggingMiddleware(app.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", app.healthcheckHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(app.config.RateLimit, 15*time.Minute))

		r.Post("/ups/create-label", app.createLabelHandler)

		r.Post("/auth/signin", app.signinHandler)
		r.Post("/auth/signout", app.signoutHandler)
		r.Get("/auth/status", app.authStatusHandler)

		r.Get("/locations", app.locationsHandler)

		r.Route("/founder", func(r chi.Router) {
			r.Use(app.gate.RequireFounder)
			r.Get("/dashboard", app.founderDashboardHandler)
			r.Get("/orders", app.founderOrdersHandler)
			r.Get("/analytics", app.founderAnalyticsHandler)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpio.NotFoundResponse(w)
		})
	})

	r.Get("/", app.servePage("index.html"))
	r.Get("/signin", app.servePage("signin.html"))
	r.With(app.gate.RequireFounder).Get("/dashboard", app.servePage("dashboard.html"))
	r.NotFound(app.staticHandler())

	return r
}
