package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"time-tracker/internal/auth"
	"time-tracker/internal/bot"
	"time-tracker/internal/config"
	"time-tracker/internal/httpapi"
	"time-tracker/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server (and the Telegram bot when configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withApp(func(cfg config.Config, a *app) error {
			return serve(ctx, cfg, a)
		})
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg config.Config, a *app) error {
	if err := cfg.RequireSecret(); err != nil {
		return err
	}

	server, err := httpapi.New(httpapi.Options{
		Entries:      a.entries,
		Tasks:        a.tasks,
		Categories:   a.categories,
		Users:        a.users,
		Issuer:       auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL),
		Location:     cfg.Location,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		return err
	}

	if cfg.TelegramToken != "" {
		stopBot, err := startBot(ctx, cfg, a)
		if err != nil {
			return err
		}
		defer stopBot()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[warn] http shutdown: %v", err)
		}
	}()

	log.Printf("[info] time tracker listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("Shutdown complete.")
	return nil
}

// startBot runs the Telegram bot and its daily report job in the background.
func startBot(ctx context.Context, cfg config.Config, a *app) (func(), error) {
	telegramBot, err := bot.New(cfg.TelegramToken, a.users, a.entries, a.reports, cfg.Location)
	if err != nil {
		return nil, err
	}

	scheduler := service.NewSchedulerService(cfg.Location, 30*time.Second)
	if _, err := scheduler.ScheduleDaily("daily-report", cfg.ReportTime, telegramBot.SendDailyReports); err != nil {
		return nil, err
	}
	scheduler.Start()

	go func() {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[error] bot stopped with error: %v", err)
		}
	}()

	return scheduler.Stop, nil
}
