package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Nexus6Mx/see/internal/config"
	"github.com/Nexus6Mx/see/internal/dispatch"
	"github.com/Nexus6Mx/see/internal/domain"
	"github.com/Nexus6Mx/see/internal/infra/postgresql"
	"github.com/Nexus6Mx/see/internal/infra/postgresql/migrations"
	"github.com/Nexus6Mx/see/internal/observability"
	"github.com/Nexus6Mx/see/internal/repository"
	"github.com/Nexus6Mx/see/internal/sender"
	"github.com/Nexus6Mx/see/internal/service"
)

const defaultLimit = 100

// notifier drains the delivery queue. It runs one batch and exits, or stays
// resident when -every is given a cron expression.
func main() {
	every := flag.String("every", "", "cron expression; when set, keep running batches on that schedule")
	flag.Parse()

	limit := defaultLimit
	if arg := flag.Arg(0); arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] invalid limit %q\n", arg)
			os.Exit(1)
		}
		limit = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "notifier")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	processor, queueRepo, err := buildProcessor(cfg, logger)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}

	if *every == "" {
		if err := runBatch(context.Background(), processor, queueRepo, cfg, limit); err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			os.Exit(1)
		}
		return
	}

	scheduler, err := newScheduler(*every, func() {
		if err := runBatch(context.Background(), processor, queueRepo, cfg, limit); err != nil {
			logger.Error("queue run failed", zap.Error(err))
		}
	})
	if err != nil {
		fmt.Printf("[ERROR] invalid cron expression %q: %v\n", *every, err)
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info("notifier daemon started", zap.String("schedule", *every), zap.Int("limit", limit))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("shutting down", zap.String("signal", sig.String()))
	<-scheduler.Stop().Done()
}

// newScheduler builds the daemon scheduler. Ticks that fire while a batch is
// still running are skipped, so at most one batch drains the queue at a time.
func newScheduler(expr string, job func()) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(expr, job); err != nil {
		return nil, err
	}
	return scheduler, nil
}

// runBatch processes one batch and prints the line-oriented summary the
// shop's cron monitoring greps for. Individual send failures are not fatal.
func runBatch(ctx context.Context, processor *service.Processor, queueRepo repository.QueueRepository, cfg *config.Config, limit int) error {
	printLine("Starting notification queue processor")

	stats, err := processor.Process(ctx, limit)
	if err != nil {
		return err
	}

	if stats.Processed > 0 {
		printLine(fmt.Sprintf("Processed: %d, Success: %d, Failed: %d", stats.Processed, stats.Success, stats.Failed))
	} else {
		printLine("No pending notifications")
	}

	queueStats, err := queueRepo.Stats(ctx, cfg.StatsWindow())
	if err != nil {
		return fmt.Errorf("failed to read queue stats: %w", err)
	}

	printLine(fmt.Sprintf("Queue stats (last %d days): Pending: %d, Sent: %d, Failed: %d",
		cfg.StatsWindowDays, queueStats.Pending, queueStats.Sent, queueStats.Failed))

	if cfg.FailedAlertThreshold > 0 && queueStats.Failed > int64(cfg.FailedAlertThreshold) {
		fmt.Println("[WARNING] High number of failed notifications detected!")
	}

	printLine("Queue processor finished successfully")
	return nil
}

func printLine(msg string) {
	fmt.Printf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), msg)
}

func buildProcessor(cfg *config.Config, logger *zap.Logger) (*service.Processor, repository.QueueRepository, error) {
	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres initialization failed: %w", err)
	}

	// Idempotent, so a notifier pointed at a fresh database works without
	// the API having run first.
	if err := migrations.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("database migrations failed: %w", err)
	}

	queueRepo := repository.NewGormQueueRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return nil, nil, err
	}

	processor, err := service.NewProcessor(queueRepo, attemptRepo, dispatcher, cfg.SendTimeout(), logger)
	if err != nil {
		return nil, nil, err
	}

	return processor, queueRepo, nil
}

func buildDispatcher(cfg *config.Config) (*dispatch.Dispatcher, error) {
	telegram, err := sender.NewTelegramSender(cfg.TelegramAPIURL, cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}

	whatsapp, err := sender.NewWhatsAppSender(sender.WhatsAppConfig{
		Enabled:  cfg.WhatsAppEnabled,
		APIURL:   cfg.WhatsAppAPIURL,
		APIKey:   cfg.WhatsAppAPIKey,
		Instance: cfg.WhatsAppInstance,
	})
	if err != nil {
		return nil, err
	}

	email, err := sender.NewEmailSender(sender.EmailConfig{
		Enabled:     cfg.EmailEnabled,
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.EmailFrom,
		FromName:    cfg.EmailName,
	})
	if err != nil {
		return nil, err
	}

	return dispatch.NewDispatcher(map[domain.Channel]sender.Sender{
		domain.ChannelTelegram: telegram,
		domain.ChannelWhatsApp: whatsapp,
		domain.ChannelEmail:    email,
	})
}
