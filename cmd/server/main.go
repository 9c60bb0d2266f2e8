package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-event-ticketing/config"
	"go-event-ticketing/internal/database"
	"go-event-ticketing/internal/gateway"
	"go-event-ticketing/internal/handler"
	"go-event-ticketing/internal/ledger"
	"go-event-ticketing/internal/middleware"
	"go-event-ticketing/internal/repository"
	"go-event-ticketing/internal/service"
	"go-event-ticketing/internal/worker"
	"go-event-ticketing/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories and the inventory ledger
	eventRepo := repository.NewEventRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	inventory := ledger.NewInventoryLedger(eventRepo, rdb)

	// Services
	snapClient := gateway.NewSnapClient(cfg.Gateway.BaseURL, cfg.Gateway.ServerKey, cfg.Gateway.Timeout)
	reservationSvc := service.NewReservationService(
		reservationRepo, ticketRepo, inventory, rdb,
		cfg.Reservation.TTL, cfg.Reservation.MaxPerPurchase)
	paymentSvc := service.NewPaymentService(
		reservationSvc, reservationRepo, eventRepo, ticketRepo,
		inventory, snapClient, cfg.Gateway.ServerKey)
	checkInSvc := service.NewCheckInService(ticketRepo, eventRepo, cfg.CheckIn.LeadTime)
	eventSvc := service.NewEventService(eventRepo, inventory)

	// Background sweep: capacity held by abandoned checkouts is not free
	// until this runs.
	worker.NewExpiryWorker(reservationSvc, cfg.Reservation.SweepInterval).Start(ctx)

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/api/v1")
	authed := router.Group("/api/v1", middleware.RequireAuth(cfg.Auth.JWTSecret))
	admin := router.Group("/api/v1", middleware.RequireAuth(cfg.Auth.JWTSecret), middleware.RequireAdmin())

	handler.NewEventHandler(eventSvc).RegisterRoutes(public, admin)
	handler.NewPurchaseHandler(reservationSvc, paymentSvc).RegisterRoutes(authed)
	handler.NewPaymentHandler(paymentSvc).RegisterRoutes(public)
	handler.NewCheckInHandler(checkInSvc, paymentSvc, cfg.Auth.QRSecret).RegisterRoutes(authed, admin)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()
	logger.L.Sugar().Infof("listening on %s", cfg.Server.Addr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
