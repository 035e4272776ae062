package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"bakery-pos/internal/apiclient"
	"bakery-pos/internal/config"
	"bakery-pos/internal/database"
	"bakery-pos/internal/httpapi"
	"bakery-pos/internal/logger"
	"bakery-pos/internal/messaging"
	"bakery-pos/internal/models"
	"bakery-pos/internal/services/audit"
	"bakery-pos/internal/services/catalog"
	"bakery-pos/internal/services/notification"
	"bakery-pos/internal/services/order"
	"bakery-pos/internal/services/staff"
	"bakery-pos/internal/services/waste"
	"bakery-pos/internal/supervisor"
	"bakery-pos/internal/till"
	"bakery-pos/internal/till/store"
	"bakery-pos/migrations"
)

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (pos-service, order-notifier, till)")
		configPath = flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "Path to the YAML config file")
		port       = flag.Int("port", 0, "HTTP port, overrides server.port")
		orderTypes = flag.String("order-types", "", "Comma-separated order types the notifier prints (default all)")
		prefetch   = flag.Int("prefetch", 0, "RabbitMQ prefetch count, overrides rabbitmq.prefetch")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *prefetch != 0 {
		cfg.RabbitMQ.Prefetch = *prefetch
	}

	logOpts := logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if *mode == "till" {
		// stdout belongs to the console
		logOpts.Format = "console"
		logOpts.Output = os.Stderr
	}
	log := logger.NewWithOptions(*mode, logOpts)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":   *mode,
		"config": *configPath,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "pos-service":
		err = runPOSService(ctx, cfg, log)
	case "order-notifier":
		err = runOrderNotifier(ctx, cfg, log, *orderTypes)
	case "till":
		err = runTill(ctx, cfg, log)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// runPOSService serves the back office API until ctx is done
func runPOSService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Paid-order events are optional; the API keeps working without a broker.
	var events order.EventPublisher
	conn, err := messaging.New(cfg, log)
	if err != nil {
		log.Warn("rabbitmq_unavailable", "Order events disabled", requestID, map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer conn.Close()
		events = messaging.NewPublisher(conn, log)
	}

	auditSvc := audit.NewService(audit.NewRepository(db), log)
	staffSvc := staff.NewService(staff.NewRepository(db), auditSvc, log)
	menuRepo := catalog.NewRepository(db)
	catalogSvc := catalog.NewService(menuRepo, auditSvc, log)
	orderSvc := order.NewService(order.NewRepository(db), menuRepo, staffSvc, auditSvc, events, cfg.Orders, log)
	wasteSvc := waste.NewService(waste.NewRepository(db), staffSvc, menuRepo, auditSvc, log)

	staffHandler := staff.NewHandler(staffSvc, log)
	catalogHandler := catalog.NewHandler(catalogSvc, log)
	wasteHandler := waste.NewHandler(wasteSvc, log)

	router := httpapi.NewRouter(cfg.Server, db, staffSvc, httpapi.Routes{
		Public: []func(chi.Router){
			catalogHandler.Routes,
			order.NewHandler(orderSvc, log).Routes,
			wasteHandler.Routes,
			audit.NewHandler(auditSvc, log).Routes,
		},
		Sessions: staffHandler.SessionRoutes,
		Admin: []func(chi.Router){
			staffHandler.AdminRoutes,
			catalogHandler.AdminRoutes,
			wasteHandler.AdminRoutes,
		},
	}, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree("pos-service", log, supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	log.Info("service_started", fmt.Sprintf("POS service started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
		"port":         cfg.Server.Port,
		"totals_check": cfg.Orders.TotalsCheck,
		"events":       events != nil,
	})
	return tree.Serve(ctx)
}

// runOrderNotifier prints a kitchen ticket for every paid order of the
// selected types
func runOrderNotifier(ctx context.Context, cfg *config.Config, log *logger.Logger, orderTypes string) error {
	types, err := models.ParseOrderTypes(orderTypes)
	if err != nil {
		return fmt.Errorf("invalid --order-types: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	hostname, _ := os.Hostname()
	consumer := messaging.NewConsumer(conn, log, messaging.KitchenTicketsQueue, "order-notifier-"+hostname, cfg.RabbitMQ.Prefetch)
	printer := notification.NewPrinter(consumer, os.Stdout, types, log)

	tree := supervisor.NewTree("order-notifier", log, supervisor.DefaultTreeConfig())
	tree.AddMessagingService(printer)
	return tree.Serve(ctx)
}

// runTill drives a terminal till against the back office API
func runTill(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if err := os.MkdirAll(cfg.Till.StorePath, 0o755); err != nil {
		return fmt.Errorf("failed to create till store: %w", err)
	}
	s, err := store.OpenBadger(cfg.Till.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := till.New(apiclient.New(cfg.Till.APIURL, log), s, log, till.Options{UndoWindow: cfg.Till.UndoWindow})
	if err != nil {
		return err
	}
	if u := t.User(); u != nil {
		if err := t.RefreshMenu(ctx); err != nil {
			log.Warn("menu_refresh_failed", "Could not load the menu", "", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return till.NewConsole(t, os.Stdout, log).Run(ctx, os.Stdin)
}
