package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/circles/backend/internal/auth"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/repositories"
	"github.com/anonto42/circles/backend/internal/router"
	"github.com/anonto42/circles/backend/internal/services"
	"github.com/anonto42/circles/backend/pkg/config"
	"github.com/anonto42/circles/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

// run wires the application and serves it until ctx is done or a listener fails.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	// Initialize database connections
	db := config.NewDB(cfg, log)
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("initialize databases: %w", err)
	}
	defer db.Close()

	if err := repositories.AutoMigrate(db.Postgres); err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	log.Info("PostgreSQL auto-migrations completed")
	store := repositories.NewStore(db.Postgres, db.Database)

	// Initialize Firebase
	fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
	if err != nil {
		return fmt.Errorf("initialize firebase: %w", err)
	}
	mediaService := media.NewBucketService(fb.Bucket, cfg.FirebaseStorageBucket)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	verifier := auth.Chain{
		auth.NewJWTVerifier(issuer, store.Users),
		auth.NewFirebaseVerifier(fb.AuthClient, store.Users),
	}
	gate := auth.NewGate(verifier, db, log)

	svc := services.New(services.Deps{
		Store:    store,
		Media:    mediaService,
		Log:      log,
		Issuer:   issuer,
		Firebase: fb.AuthClient,
		StoryTTL: cfg.StoryTTL,
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	config.SetupMiddleware(e, log)
	router.Setup(e, router.Deps{
		Services:   svc,
		Gate:       gate,
		Media:      mediaService,
		DB:         db,
		CronSecret: cfg.CronSecret,
		Log:        log,
	})

	// Metrics are served on their own port
	metrics := echo.New()
	metrics.HideBanner = true
	metrics.HidePort = true
	metrics.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	log.WithField("port", cfg.Port).Info("starting server")
	return serve(ctx, log, map[string]*echo.Echo{
		":" + cfg.Port:        e,
		":" + cfg.MetricsPort: metrics,
	})
}

// serve starts every server on its address. It returns once ctx is done or
// one of them fails, after shutting all of them down.
func serve(ctx context.Context, log logrus.FieldLogger, servers map[string]*echo.Echo) error {
	errCh := make(chan error, len(servers))
	for addr, srv := range servers {
		go func() {
			if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen on %s: %w", addr, err)
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for addr, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.WithError(serr).WithField("addr", addr).Error("server shutdown")
		}
	}
	return err
}
