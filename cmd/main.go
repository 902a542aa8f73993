package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/delivery/cart"
	"github.com/ray-remotestate/delivery/config"
	"github.com/ray-remotestate/delivery/database"
	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/events"
	"github.com/ray-remotestate/delivery/geo"
	"github.com/ray-remotestate/delivery/handlers"
	"github.com/ray-remotestate/delivery/server"
	"github.com/ray-remotestate/delivery/services"
	"github.com/ray-remotestate/delivery/store"
	"github.com/ray-remotestate/delivery/utils"
)

// sessionSweepInterval is how often mirrors of sessions that outlived their
// refresh token are dropped.
const sessionSweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.Init()
	if err != nil {
		logrus.Fatalf("failed to load config, error: %v", err)
	}
	cfg.SetupLogger()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	if err := database.ConnectAndMigrate(cfg.Database); err != nil {
		logrus.Panicf("failed to initialize database, error: %v", err)
	}
	logrus.Info("migration is successful")

	gw := dbhelper.NewGateway(database.Delivery)
	seedAdmin(gw, cfg)

	hub := events.NewHub()
	publisher := events.Multi{hub}
	var rabbit *events.RabbitPublisher
	if cfg.AMQPURL != "" {
		rabbit, err = events.DialRabbit(cfg.AMQPURL)
		if err != nil {
			logrus.WithError(err).Warn("order events will not reach the broker")
		} else {
			publisher = append(publisher, rabbit)
			logrus.Infof("publishing order events to exchange %s", events.Exchange)
		}
	}

	sessions := store.NewSessions(gw)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(sweepCtx, sessionSweepInterval, utils.RefreshTTL)
	carts := cart.New(cart.NewMemoryStorage())
	h := handlers.New(handlers.Deps{
		Accounts: gw,
		Orders:   services.NewOrderService(gw, sessions, carts, publisher),
		Delivery: services.NewDeliveryService(gw, sessions),
		Catalog:  services.NewCatalogService(gw, sessions),
		Sessions: sessions,
		Carts:    carts,
		Geocoder: geo.NewGeocoder(cfg.GeocoderURL),
		Hub:      hub,
	})

	srv := server.SetupRoutes(h)
	go func() {
		if err := srv.Run(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Panicf("failed to run server, error: %v", err)
		}
	}()
	logrus.Infof("server started at :%s", cfg.Port)

	<-done

	logrus.Info("shutting down...")
	stopSweep()
	var result *multierror.Error
	if err := srv.Shutdown(cfg.ShutdownTimeout); err != nil {
		result = multierror.Append(result, err)
	}
	if rabbit != nil {
		if err := rabbit.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := database.ShutdownDatabase(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		logrus.WithError(err).Error("unclean shutdown")
		os.Exit(1)
	}
	logrus.Info("system is shut ..zzz")
}

// seedAdmin creates the admin login from ADMIN_EMAIL and ADMIN_PASSWORD when
// both are set. Registration never hands out the admin role.
func seedAdmin(gw *dbhelper.Gateway, cfg *config.Config) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		logrus.WithError(err).Error("failed to hash admin password")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	created, err := gw.EnsureAdmin(ctx, cfg.AdminEmail, hash)
	if err != nil {
		logrus.WithError(err).Error("failed to seed admin account")
		return
	}
	if created {
		logrus.WithField("email", cfg.AdminEmail).Info("admin account created")
	}
}
