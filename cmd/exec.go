package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"

	"venuepass/config"
	"venuepass/handlers"
	"venuepass/internal/services/pos"
	"venuepass/internal/services/pos/square"
	"venuepass/internal/services/pos/toast"
	"venuepass/internal/webhook"
	"venuepass/models"
	"venuepass/monitoring"
	"venuepass/services"
	"venuepass/store"
	"venuepass/utils"

	_ "venuepass/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub for app notifications
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Register POS providers
	registry := pos.NewRegistry(pos.NewFactory())
	if cfg.Toast.BaseURL != "" {
		err := registry.Register(ctx, pos.ProviderToast, &toast.Config{
			BaseURL:     cfg.Toast.BaseURL,
			ClientID:    cfg.Toast.ClientID,
			ClientKey:   cfg.Toast.ClientKey,
			HMACKey:     cfg.Toast.HMACKey,
			PNSubKey:    cfg.Toast.PNSubKey,
			PNSubSecret: cfg.Toast.PNSubSecret,
			PNUUID:      cfg.Toast.PNUUID,
			PNChannel:   cfg.Toast.PNChannel,
		})
		if err != nil {
			return err
		}
	}
	if cfg.Square.BaseURL != "" {
		err := registry.Register(ctx, pos.ProviderSquare, &square.Config{
			BaseURL:       cfg.Square.BaseURL,
			AccessToken:   cfg.Square.AccessToken,
			WebhookSecret: cfg.Square.WebhookSecret,
		})
		if err != nil {
			return err
		}
	}
	defer registry.Close(context.Background())

	// Initialize stores and services
	st := store.New(app)
	notifier := services.NewNotifier(pn)

	inventoryService := services.NewInventoryService(redisClient, cfg)
	ticketService := services.NewTicketService(st, inventoryService, notifier)
	checkinService := services.NewCheckinService(st, notifier, cfg.EnforceEventLive)
	guestListService := services.NewGuestListService(st)
	ruleService := services.NewSpendRuleService(st, redisClient, notifier)
	ingestService := services.NewPOSIngestService(st, registry, ruleService, cfg)

	// Initialize handlers
	ticketHandler := handlers.NewTicketHandler(app, ticketService, inventoryService, cfg.ReservationTTL)
	checkinHandler := handlers.NewCheckinHandler(app, checkinService, st)
	guestListHandler := handlers.NewGuestListHandler(app, guestListService, st)
	posHandler := handlers.NewPOSHandler(app, ingestService, cfg)
	rulesHandler := handlers.NewRulesHandler(app, ruleService, st)

	// Webhook ingress and metrics servers on their own ports
	webhookServer := webhook.NewServer(registry, ingestService, redisClient, cfg.WebhookRateLimit)
	metricsServer := monitoring.NewMetricsServer(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go inventoryService.RunSweeper(ctx)
	go ingestService.Run(ctx)
	go func() {
		if err := webhookServer.Start(cfg.WebhookPort); err != nil {
			slog.Error("webhook server stopped", "error", err)
		}
	}()
	if cfg.EnableMetrics {
		go metricsServer.Start(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel, webhookServer, metricsServer, inventoryService)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		syncTiersToRedis(app, inventoryService)

		// Ticket endpoints
		e.Router.POST("/api/v1/tickets/reserve", ticketHandler.Reserve)
		e.Router.POST("/api/v1/tickets/confirm", ticketHandler.ConfirmPurchase)
		e.Router.POST("/api/v1/tickets/release", ticketHandler.Release)
		e.Router.POST("/api/v1/tickets/transfer", ticketHandler.Transfer)
		e.Router.GET("/api/v1/tickets/validate", ticketHandler.Validate)
		e.Router.GET("/api/v1/tickets/mine", ticketHandler.ListMine)

		// Check-in endpoints
		e.Router.POST("/api/v1/checkin/scan", checkinHandler.Scan)
		e.Router.POST("/api/v1/checkin/guest", checkinHandler.GuestCheckIn)

		// Guest list endpoints
		e.Router.POST("/api/v1/guestlist", guestListHandler.Add)
		e.Router.GET("/api/v1/events/{eventId}/guestlist", guestListHandler.List)
		e.Router.POST("/api/v1/guestlist/{entryId}/confirm", guestListHandler.Confirm)
		e.Router.POST("/api/v1/guestlist/{entryId}/remove", guestListHandler.Remove)

		// Spend rule endpoints
		e.Router.GET("/api/v1/venues/{venueId}/rules", rulesHandler.ListRules)
		e.Router.GET("/api/v1/grants/mine", rulesHandler.MyGrants)

		// Admin endpoints
		e.Router.GET("/api/v1/admin/inventory/{tierId}", ticketHandler.InventorySnapshot)
		e.Router.POST("/api/v1/admin/events/{eventId}/reconcile", guestListHandler.Reconcile)
		e.Router.POST("/api/v1/admin/pos/{provider}/sync", posHandler.SyncNow)
		e.Router.POST("/api/v1/admin/grants", rulesHandler.ManualGrant)
		e.Router.POST("/api/v1/admin/rules/reevaluate", rulesHandler.Reevaluate)

		// Test endpoint for POS simulation
		if cfg.Environment == "development" {
			e.Router.POST("/api/v1/test/simulate-pos", posHandler.Simulate)
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupTierHooks(app, inventoryService)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// syncTiersToRedis seeds the live inventory counters from the durable tier
// rows on startup, so a restart never loses the sold counts.
func syncTiersToRedis(app *pocketbase.PocketBase, inventory *services.InventoryService) {
	ctx := context.Background()

	records, err := app.FindRecordsByFilter("ticket_tiers", "id != ''", "", -1, 0)
	if err != nil {
		log.Printf("Error fetching tiers: %v", err)
		return
	}

	synced := 0
	for _, r := range records {
		tier := tierFromRecord(r)
		if err := inventory.SyncTier(ctx, tier); err != nil {
			slog.Error("failed to seed tier counters", "tier_id", tier.ID, "error", err)
			continue
		}
		synced++
	}
	log.Printf("Seeded %d tiers into Redis", synced)
}

// setupTierHooks keeps the Redis counters in step with tier edits made
// through the app API or the admin dashboard.
func setupTierHooks(app *pocketbase.PocketBase, inventory *services.InventoryService) {
	app.OnRecordCreateRequest("ticket_tiers").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}
		if err := inventory.SyncTier(e.Request.Context(), tierFromRecord(e.Record)); err != nil {
			// the durable row is the source of truth; log and let the
			// request succeed, the startup seed will repair the counters.
			slog.Error("failed to sync new tier to Redis", "tier_id", e.Record.Id, "error", err)
		}
		return nil
	})

	app.OnRecordUpdateRequest("ticket_tiers").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}
		if err := inventory.SyncTier(e.Request.Context(), tierFromRecord(e.Record)); err != nil {
			slog.Error("failed to sync updated tier to Redis", "tier_id", e.Record.Id, "error", err)
		}
		return nil
	})
}

func tierFromRecord(r *core.Record) models.TicketTier {
	return models.TicketTier{
		ID:         r.Id,
		EventID:    r.GetString("event_id"),
		Name:       r.GetString("name"),
		Price:      int64(r.GetInt("price")),
		Quantity:   r.GetInt("quantity"),
		Sold:       r.GetInt("sold"),
		SalesStart: r.GetDateTime("sales_start").Time(),
		SalesEnd:   r.GetDateTime("sales_end").Time(),
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc, webhookServer *webhook.Server, metricsServer *monitoring.MetricsServer, inventory *services.InventoryService) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	inventory.Stop()
	if err := webhookServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("webhook server shutdown", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown", "error", err)
	}
}
