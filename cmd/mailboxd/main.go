package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/craftdesk/mailroom/internal/config"
	"github.com/craftdesk/mailroom/internal/mailbox"
	"github.com/craftdesk/mailroom/internal/normalize"
	"github.com/craftdesk/mailroom/internal/simstore"
	"github.com/craftdesk/mailroom/internal/userstore"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mailboxd version %s\n", version)
		os.Exit(0)
	}

	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	// Set up logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Starting mailroom daemon")

	// Open the user credential store
	userDB, err := userstore.Open(cfg.DBPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open user store")
	}
	defer userDB.Close()
	users := userstore.NewStore(userDB, logger)

	// Global mail-service configuration is optional
	global, err := config.LoadGlobalMailConfig(cfg.GlobalMailPath)
	if err != nil {
		logger.WithError(err).Warn("Failed to load global mail service config")
	}

	resolver := config.NewResolver(users, global, logger)
	store := simstore.New(logger)
	norm := normalize.New(logger)
	service := mailbox.NewService(resolver, store, norm, logger)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Notification poll loop: keeps the recent-messages cache warm for
	// the configured user so unread counts stay fresh.
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	poll := func() {
		if cfg.PollUserID == "" {
			return
		}
		msgs := service.ListRecentMessages(cfg.PollUserID, cfg.PollFolder, 20)
		unread := 0
		for _, m := range msgs {
			if !m.IsRead {
				unread++
			}
		}
		logger.WithFields(logrus.Fields{
			"user_id": cfg.PollUserID,
			"folder":  cfg.PollFolder,
			"total":   len(msgs),
			"unread":  unread,
		}).Info("Polled recent messages")
	}

	poll()
	for {
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig).Info("Received shutdown signal")
			logger.Info("Shutting down mailroom daemon")
			return
		case <-ticker.C:
			poll()
		}
	}
}
