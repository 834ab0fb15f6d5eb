package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brevitybot/internal/app"
	"brevitybot/internal/config"
	"brevitybot/internal/logger"
	"brevitybot/internal/platform"
	transport "brevitybot/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler and quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logger.Env, cfg.Logger.Level)
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, cleanup, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Seed the catalog before the first tick; a fetch failure is survivable
	// as long as a previous catalog exists.
	if added, updated, err := deps.catalog.Refresh(runCtx); err != nil {
		log.Warn("initial term refresh failed", zap.Error(err))
	} else {
		log.Info("term catalog refreshed", zap.Int("added", added), zap.Int("updated", updated))
	}

	go deps.scheduler.Run(runCtx)
	go refreshLoop(runCtx, deps.catalog, config.Duration(cfg.Source.RefreshInterval, 24*time.Hour), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", deps.wsHandler.ServeWS)
	mux.HandleFunc("/quiz", deps.quizHandler.StartQuiz)
	mux.HandleFunc("/post", deps.quizHandler.PostTerm)
	mux.HandleFunc("/board", deps.quizHandler.Board)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("brevitybot listening", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down")
	case <-ctx.Done():
		log.Info("context canceled, shutting down")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

type components struct {
	catalog     *app.Catalog
	scheduler   *app.Scheduler
	wsHandler   *transport.WSHandler
	quizHandler *transport.QuizHandler
}

func buildComponents(ctx context.Context, cfg config.Config, log *zap.Logger) (*components, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, pool.Close)
	}

	stores := buildStores(cfg, redisClient, pool)

	source := platform.NewWikiSource(cfg.Source.WikiURL)
	catalog := app.NewCatalog(stores.catalog, source, log)
	rotation := app.NewRotation(catalog, stores.used, log)
	images := platform.NewFlickrSource(cfg.Source.FlickrKey, cfg.Source.FlickrGroup)

	var messenger app.Messenger
	if cfg.Messenger.WebhookURL != "" {
		messenger = platform.NewWebhookMessenger(cfg.Messenger.WebhookURL)
	} else {
		log.Warn("no webhook configured, logging outbound messages instead")
		messenger = platform.NewLogMessenger(log)
	}

	board := app.NewBoard(stores.scores)
	quiz := app.NewQuizService(catalog, stores.votes, board, messenger,
		config.Duration(cfg.Quiz.AnswerTimeout, time.Minute), log)

	tick := config.Duration(cfg.Scheduler.Tick, 5*time.Minute)
	tolerance := config.Duration(cfg.Scheduler.Tolerance, tick)
	scheduler := app.NewScheduler(stores.configs, rotation, images, messenger, tick, tolerance, log)

	questions := cfg.Quiz.Questions
	if questions <= 0 {
		questions = 5
	}
	quizHandler := transport.NewQuizHandler(quiz, scheduler, board, stores.configs,
		questions, config.Duration(cfg.Quiz.Duration, 2*time.Minute), log)

	return &components{
		catalog:     catalog,
		scheduler:   scheduler,
		wsHandler:   transport.NewWSHandler(quiz, log),
		quizHandler: quizHandler,
	}, cleanup, nil
}

func refreshLoop(ctx context.Context, catalog *app.Catalog, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			added, updated, err := catalog.Refresh(ctx)
			if err != nil {
				log.Warn("scheduled term refresh failed", zap.Error(err))
				continue
			}
			log.Info("term catalog refreshed", zap.Int("added", added), zap.Int("updated", updated))
		}
	}
}
