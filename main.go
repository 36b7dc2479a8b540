package main

import (
	"database/sql"
	"embed"
	"log/slog"
	"net/http"
	"os"

	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcruz/wayfare/api"
	"github.com/mcruz/wayfare/eventlogger"
	"github.com/mcruz/wayfare/itinerary"
	"github.com/mcruz/wayfare/ledger"
	"github.com/mcruz/wayfare/logging"
	"github.com/mcruz/wayfare/middleware"
	"github.com/mcruz/wayfare/payments"
	"github.com/mcruz/wayfare/poll"
	"github.com/mcruz/wayfare/session"
	"github.com/mcruz/wayfare/trip"
	"github.com/mcruz/wayfare/user"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	logging.Setup()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost port=5432 user=postgres password=postgres dbname=wayfare sslmode=disable"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	if err := db.Ping(); err != nil {
		printErrorAndExit("pinging database", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		printErrorAndExit("setting migration dialect", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		printErrorAndExit("running migrations", err)
	}

	evtlogger := eventlogger.NewSqlEventLogger(db)
	worker := eventlogger.NewWorker(evtlogger, 100)
	worker.Start()
	defer worker.Shutdown()

	sessionRepo := session.NewRepository(db)

	server := api.NewServer(api.Config{
		Trips:       trip.NewRepository(db),
		Expenses:    ledger.NewRepository(db),
		Itinerary:   itinerary.NewRepository(db),
		Polls:       poll.NewRepository(db),
		Deposits:    payments.NewRepository(db),
		Users:       user.NewRepository(db),
		Sessions:    sessionRepo,
		Intents:     payments.LogIntentClient{},
		Events:      worker,
		EventReader: evtlogger,
	})

	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(middleware.Metrics)
	router.Use(middleware.Auth(sessionRepo))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	server.PublicRoutes(router)

	// Payment processors call the webhook without a session.
	router.Post("/payments/webhook", server.PaymentWebhook)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		server.AccountRoutes(r)
		server.Routes(r)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	slog.Info("server starting", "port", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		printErrorAndExit("server stopped", err)
	}
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
