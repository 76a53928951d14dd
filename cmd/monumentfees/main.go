package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	monumentfees "github.com/bishal-dd/monument-fees-prototype"
	"github.com/bishal-dd/monument-fees-prototype/api"
	"github.com/bishal-dd/monument-fees-prototype/booking"
	"github.com/bishal-dd/monument-fees-prototype/cart"
	"github.com/bishal-dd/monument-fees-prototype/config"
	"github.com/bishal-dd/monument-fees-prototype/driver"
	"github.com/bishal-dd/monument-fees-prototype/event"
	"github.com/bishal-dd/monument-fees-prototype/monument"
	"github.com/bishal-dd/monument-fees-prototype/otp"
	"github.com/bishal-dd/monument-fees-prototype/payment"
)

func main() {
	configPath := flag.String("config", os.Getenv("MONUMENT_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Development)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err = run(cfg, logger); err != nil {
		logger.Fatal("Service stopped", zap.Error(err))
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	gin.SetMode(gin.ReleaseMode)
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := driver.ConnectSQL(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return err
	}
	defer db.Pool.Close()

	if cfg.Postgres.Migrate {
		if err = driver.Migrate(ctx, db.Pool); err != nil {
			return err
		}
		logger.Info("Schema applied")
	}

	redisClient, err := driver.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.Database)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	natsConn, err := driver.ConnectNATS(cfg.NATS.URL, cfg.NATS.Name, logger)
	if err != nil {
		return err
	}
	defer natsConn.Close()

	cache := driver.NewCache(redisClient, "monumentfees")

	svc, err := monumentfees.NewService(
		monument.NewRepository(db.Pool, cache, logger),
		cart.NewRepository(redisClient, cfg.Booking.CartTTL, logger),
		booking.NewRepository(db.Pool, cache, logger),
		event.NewRepository(db.Pool, logger),
		driver.NewTransactionManager(db.Pool, logger),
		otp.NewService(otp.NewRepository(redisClient, logger), otp.Config{
			Length:      cfg.OTP.Length,
			TTL:         cfg.OTP.TTL,
			MaxAttempts: cfg.OTP.MaxAttempts,
		}),
		payment.NewStripeGateway(cfg.Stripe.SecretKey, logger),
		natsConn,
		monumentfees.Options{
			Currency:       stripe.Currency(cfg.Booking.Currency),
			TicketValidity: cfg.Booking.TicketValidity,
			SecuritySecret: cfg.Booking.SecuritySecret,
			Workers:        cfg.Booking.Workers,
		},
		logger,
	)
	if err != nil {
		return err
	}
	defer svc.Shutdown()

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewRouter(api.NewHandler(svc, cfg.HTTP.SecureCookies, logger)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err = <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
