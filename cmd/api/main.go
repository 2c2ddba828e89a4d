package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/punchamoorthee/mxledger/internal/api"
	"github.com/punchamoorthee/mxledger/internal/config"
	"github.com/punchamoorthee/mxledger/internal/events"
	"github.com/punchamoorthee/mxledger/internal/logging"
	"github.com/punchamoorthee/mxledger/internal/service"
	"github.com/punchamoorthee/mxledger/internal/store"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Unable to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.RunMigrations {
		if err := store.Migrate(cfg.DBSource); err != nil {
			logger.Fatal("Unable to run migrations", zap.Error(err))
		}
	}

	ledgerStore, err := store.NewStore(context.Background(), cfg.DBSource)
	if err != nil {
		logger.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer ledgerStore.Close()

	var publisher events.Publisher = &events.FallbackPublisher{Logger: logger}
	if cfg.RabbitMQURL != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.LedgerEventExchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable; ledger events will not be published", zap.Error(err))
		} else {
			publisher = rp
		}
	}
	defer publisher.Close()

	// Initialize Layers
	mxTxns := service.NewMxTransactionService(ledgerStore, ledgerStore, publisher, logger)
	resolver := service.NewTransferStatusResolver(ledgerStore, ledgerStore)
	handler := api.NewHandler(mxTxns, resolver, logger)

	// Router
	r := mux.NewRouter()
	handler.Routes(r)

	logger.Info("Server starting", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
