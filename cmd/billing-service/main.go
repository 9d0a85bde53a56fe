package main

import (
	"fmt"
	"os"

	"github.com/crewtrack/billing-service/internal/auth"
	"github.com/crewtrack/billing-service/internal/config"
	"github.com/crewtrack/billing-service/internal/db"
	"github.com/crewtrack/billing-service/internal/excel"
	httphandler "github.com/crewtrack/billing-service/internal/http"
	"github.com/crewtrack/billing-service/internal/http/middleware"
	"github.com/crewtrack/billing-service/internal/logger"
	"github.com/crewtrack/billing-service/internal/pdf"
	"github.com/crewtrack/billing-service/internal/repository"
	"github.com/crewtrack/billing-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	projectRepo := repository.NewProjectRepository(database)
	budgetRepo := repository.NewBudgetRepository(database)
	changeOrderRepo := repository.NewChangeOrderRepository(database)
	payAppRepo := repository.NewPayAppRepository(database)
	retainageRepo := repository.NewRetainageRepository(database)
	signatureRepo := repository.NewSignatureRepository(database)
	auditRepo := repository.NewAuditRepository(database)

	var notifier service.Notifier
	if cfg.Notifier.WebhookURL != "" {
		notifier = service.NewWebhookNotifier(cfg.Notifier.WebhookURL, cfg.Notifier.Timeout)
	} else {
		notifier = service.NewNopNotifier(log)
	}

	auditService := service.NewAuditService(auditRepo)
	ledgerService := service.NewLedgerService(projectRepo, budgetRepo, changeOrderRepo, payAppRepo)
	payAppService := service.NewPayAppService(
		payAppRepo,
		projectRepo,
		budgetRepo,
		changeOrderRepo,
		signatureRepo,
		auditService,
		notifier,
		log,
	)
	retainageService := service.NewRetainageService(retainageRepo, budgetRepo, projectRepo, auditService)
	signatureService := service.NewSignatureService(
		signatureRepo,
		payAppRepo,
		changeOrderRepo,
		auditService,
		notifier,
		cfg.Signatures.SigningBaseURL,
		cfg.Signatures.DefaultExpiry,
		log,
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(
		ledgerService,
		payAppService,
		retainageService,
		signatureService,
		auditService,
		pdf.NewGenerator(),
		excel.NewGenerator(),
		log,
	)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting billing service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
