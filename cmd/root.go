package cmd

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pyama86/YAIR/handler"
	"github.com/spf13/cobra"
)

var (
	configPath string
	listenAddr string
	logPath    string
)

var rootCmd = &cobra.Command{
	Use:   "yair",
	Short: "yair opens and closes GitLab incidents from uptime webhooks",
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "version" {
			return
		}

		if err := run(); err != nil {
			slog.Error("Failed to run command", slog.Any("error", err))
			os.Exit(1)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Error("Failed to get user home directory", slog.Any("error", err))
		os.Exit(1)
	}
	rootCmd.Flags().StringVar(&configPath, "config", path.Join(home, "yair.toml"), "config file path")
	rootCmd.Flags().StringVar(&listenAddr, "listen", ":5000", "webhook listen address")
	rootCmd.Flags().StringVar(&logPath, "log-file", "", "also write logs to this file")
}

func setupLogger() (io.Closer, error) {
	w := io.Writer(os.Stdout)
	var closer io.Closer
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stdout, f)
		closer = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, nil)))
	return closer, nil
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if _, err := os.Stat(".env"); err == nil {
		err := godotenv.Load()
		if err != nil {
			log.Fatal("Error loading .env file")
		}
	}

	closer, err := setupLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	slog.Info("Server started", slog.String("listen", listenAddr))
	if err := handler.Serve(ctx, configPath, listenAddr); err != nil {
		return err
	}

	return nil
}
