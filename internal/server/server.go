package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/config"
	"github.com/ticketbari/marketplace/internal/booking"
	"github.com/ticketbari/marketplace/internal/checkout"
	"github.com/ticketbari/marketplace/internal/gateway"
	"github.com/ticketbari/marketplace/internal/handlers"
	"github.com/ticketbari/marketplace/internal/helpers"
	"github.com/ticketbari/marketplace/internal/inventory"
	"github.com/ticketbari/marketplace/internal/middleware"
	"github.com/ticketbari/marketplace/internal/revenue"
	"github.com/ticketbari/marketplace/internal/settlement"
	"github.com/ticketbari/marketplace/internal/store"
)

const shutdownTimeout = 15 * time.Second

// Dependencies are the long-lived handles the router is built from.
type Dependencies struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Store   store.Store
	Redis   *redis.Client
	Gateway gateway.Gateway
	Sandbox *gateway.Sandbox
}

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg)

	st, err := config.InitStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	redisClient, err := config.InitRedis(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	gw, sandbox, err := config.InitGateway(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	r := NewRouter(Dependencies{
		Config:  cfg,
		Logger:  logger,
		Store:   st,
		Redis:   redisClient,
		Gateway: gw,
		Sandbox: sandbox,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
			"provider":    gw.Provider(),
			"store":       cfg.StoreDriver,
		}).Info("server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	var cache *revenue.Cache
	var redisCmd redis.Cmdable
	if deps.Redis != nil {
		cache = revenue.NewCache(deps.Redis, cfg.RevenueCacheTTL)
		redisCmd = deps.Redis
	}

	gw := gateway.NewBounded(deps.Gateway, cfg.GatewayTimeout, deps.Logger)
	tokens := helpers.NewReturnTokenSigner(cfg.TokenSecret)

	inventoryService := inventory.NewService(deps.Store, deps.Logger)
	ledger := booking.NewLedger(deps.Store, deps.Logger)
	aggregator := revenue.NewAggregator(deps.Store, cache, deps.Logger)
	checkoutService := checkout.NewService(deps.Store, gw, tokens, checkout.Config{
		Currency:      cfg.PaymentCurrency,
		PublicBaseURL: cfg.PublicBaseURL,
	}, deps.Logger)
	processor := settlement.NewProcessor(deps.Store, gw, aggregator, deps.Logger)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(deps.Logger),
		cors.New(corsConfig(cfg.CORSAllowedOrigins)),
	)

	health := handlers.NewHealthHandler(deps.Store, redisCmd)
	r.GET("/health", health.Health)
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	setupRoutes(r, routeHandlers{
		tickets:  handlers.NewTicketHandler(inventoryService),
		bookings: handlers.NewBookingHandler(ledger),
		passes:   handlers.NewPassHandler(ledger, inventoryService, helpers.NewPassSigner(cfg.TokenSecret)),
		payments: handlers.NewPaymentHandler(checkoutService, processor, deps.Sandbox),
		revenue:  handlers.NewRevenueHandler(aggregator),
	}, cfg, deps.Sandbox != nil)

	return r
}

func corsConfig(origins []string) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			corsCfg.AllowAllOrigins = true
			return corsCfg
		}
	}
	if len(origins) == 0 {
		corsCfg.AllowAllOrigins = true
		return corsCfg
	}
	corsCfg.AllowOrigins = origins
	return corsCfg
}

type routeHandlers struct {
	tickets  *handlers.TicketHandler
	bookings *handlers.BookingHandler
	passes   *handlers.PassHandler
	payments *handlers.PaymentHandler
	revenue  *handlers.RevenueHandler
}

func setupRoutes(r *gin.Engine, h routeHandlers, cfg *config.Config, sandboxEnabled bool) {
	v1 := r.Group("/v1")
	v1.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))
	{
		tickets := v1.Group("/tickets")
		{
			tickets.POST("", h.tickets.CreateTicket)
			tickets.GET("", h.tickets.ListTickets)
			tickets.GET("/advertised", h.tickets.ListAdvertised)
			tickets.GET("/latest", h.tickets.ListLatest)
			tickets.GET("/:id", h.tickets.GetTicket)
			tickets.PUT("/:id/approval", h.tickets.SetApproval)
			tickets.PUT("/:id/advertise", h.tickets.SetAdvertised)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.POST("", h.bookings.CreateBooking)
			bookings.GET("", h.bookings.ListBookings)
			bookings.GET("/:id", h.bookings.GetBooking)
			bookings.PUT("/:id/decision", h.bookings.SetDecision)
			bookings.GET("/:id/pass", h.passes.GeneratePass)
		}
		v1.POST("/passes/verify", h.passes.VerifyPass)

		v1.POST("/checkouts", h.payments.CreateCheckout)
		v1.POST("/settlements", h.payments.Settle)
		v1.GET("/settlements/return", h.payments.SettleReturn)
		v1.POST("/webhooks/payments", h.payments.Webhook)

		v1.GET("/vendors/:id/revenue", h.revenue.GetVendorRevenue)

		if sandboxEnabled && cfg.IsDevelopment() {
			v1.POST("/sandbox/sessions/:ref/pay", h.payments.SandboxPay)
		}
	}
}
