package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/auth"
	"github.com/ziadkadry99/docchat/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docchat HTTP server",
	Long:  `Starts the HTTP API for login, PDF upload, question answering, chat history and admin reports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		questions, err := a.questionService()
		if err != nil {
			return err
		}

		if _, err := auth.EnsureAdmin(ctx, a.users, a.cfg.Auth.AdminUsername, a.cfg.Auth.AdminPassword, a.logger); err != nil {
			return fmt.Errorf("bootstrapping admin: %w", err)
		}

		secret := a.cfg.Auth.JWTSecret
		if secret == "" {
			if secret, err = auth.RandomPassword(32); err != nil {
				return err
			}
			a.logger.Warn("auth.jwt_secret is not set; sessions will not survive a restart")
		}

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv := server.New(server.Config{
			Host:           a.cfg.Server.Host,
			Port:           port,
			RequestTimeout: a.cfg.Server.RequestTimeout,
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
			MaxUploadBytes: a.cfg.Server.MaxUploadMB << 20,
			CookieSecure:   a.cfg.Auth.CookieSecure,
		}, server.Deps{
			Users:     a.users,
			Sessions:  auth.NewJWTManager(secret, a.cfg.Auth.SessionTTL),
			Documents: a.docs,
			QueryLog:  a.queryLog,
			Questions: questions,
			Uploads:   a.pipeline,
			Index:     a.index,
			Metrics:   a.metrics,
			Logger:    a.logger.Named("http"),
		})

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("shutdown", zap.Error(err))
			}
		}()

		fmt.Fprintf(os.Stderr, "docchat server v%s starting on %s\n", Version, srv.Addr())
		fmt.Fprintf(os.Stderr, "  Database: %s\n", a.cfg.DBPath())
		fmt.Fprintf(os.Stderr, "  Uploads: %s\n", a.cfg.UploadDir())
		fmt.Fprintf(os.Stderr, "  Chunks indexed: %d\n", a.index.Count())

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 5000, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
