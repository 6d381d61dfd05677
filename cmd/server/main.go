package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-gin-bus-booking/config"
	"go-gin-bus-booking/internal/cache"
	"go-gin-bus-booking/internal/database"
	"go-gin-bus-booking/internal/handler"
	"go-gin-bus-booking/internal/payment"
	"go-gin-bus-booking/internal/queue"
	"go-gin-bus-booking/internal/repository"
	"go-gin-bus-booking/internal/service"
	"go-gin-bus-booking/internal/storage"
	"go-gin-bus-booking/internal/worker"
	"go-gin-bus-booking/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	defer logger.Sync()
	log := logger.WithComponent("main")

	cfg := config.LoadConfig()
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := database.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer rdb.Close()

	store, err := storage.NewDiskStore(cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}

	eventQueue, err := newPaymentEventQueue(ctx, cfg.Queue, rdb)
	if err != nil {
		log.Fatal("Failed to initialize payment event queue", zap.Error(err))
	}

	// repositories
	txManager := database.NewTxManager(pool)
	routeRepository := repository.NewRouteRepository(pool)
	seatRepository := repository.NewSeatRepository(pool)
	ticketRepository := repository.NewTicketRepository(pool)
	orderRepository := repository.NewOrderRepository(pool)
	customerRepository := repository.NewCustomerRepository(pool)

	// redis
	availabilityCache := cache.NewRedisAvailabilityCache(rdb, cache.DefaultAvailabilityTTL)
	checkoutHolds := cache.NewRedisCheckoutHolds(rdb, cache.DefaultHoldTTL)
	eventDeduper := cache.NewRedisEventDeduper(rdb, cache.DefaultEventDedupeTTL)

	gateway := payment.NewStripeGateway(cfg.Payment)

	// services
	customerService := service.NewCustomerService(customerRepository)
	routeService := service.NewRouteService(
		txManager, routeRepository, seatRepository, ticketRepository, orderRepository, availabilityCache, checkoutHolds, store,
	)
	bookingService := service.NewBookingService(
		txManager, routeRepository, seatRepository, ticketRepository, orderRepository,
		customerService, gateway, checkoutHolds, availabilityCache, nil,
	)
	ticketService := service.NewTicketService(txManager, ticketRepository, orderRepository, routeRepository, seatRepository, availabilityCache)

	paymentWorker := worker.NewPaymentWorker(bookingService, eventQueue)
	if err := paymentWorker.Start(ctx); err != nil {
		log.Fatal("Failed to start payment worker", zap.Error(err))
	}

	router := handler.NewRouter(cfg,
		handler.NewRouteHandler(routeService),
		handler.NewCheckoutHandler(bookingService),
		handler.NewWebhookHandler(gateway, eventDeduper, eventQueue),
		handler.NewOrderHandler(bookingService),
		handler.NewTicketHandler(ticketService),
		handler.NewCustomerHandler(customerService),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	paymentWorker.Wait()
}

func newPaymentEventQueue(ctx context.Context, cfg config.QueueConfig, rdb *redis.Client) (queue.PaymentEventQueue, error) {
	if cfg.Driver == "redis" {
		return queue.NewRedisStreamPaymentQueue(ctx, rdb, queue.StreamOptions{Consumer: cfg.ConsumerID})
	}
	return queue.NewMemoryPaymentEventQueue(cfg.BufferSize), nil
}
