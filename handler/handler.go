package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pyama86/YAIR/domain/repository"
	"github.com/slack-go/slack"
)

// Serve は設定を読み込み、依存を束ねてwebhookサーバーを起動する。
func Serve(ctx context.Context, configPath, listenAddr string) error {
	cfg, err := repository.NewConfigRepository(configPath)
	if err != nil {
		return err
	}

	store, err := newCorrelationRepository(cfg)
	if err != nil {
		return err
	}
	slog.Info("Correlation store initialized", slog.String("backend", cfg.Store.Backend))

	graphRepository := repository.NewGraphRepository(&cfg.Graph)
	gitlabRepository := repository.NewGitLabRepository(&cfg.GitLab)

	var announcer repository.Announcer
	if cfg.SlackEnabled() {
		announcer = repository.NewSlackRepository(slack.New(cfg.Slack.Token), cfg.Slack.AnnounceChannel)
		slog.Info("Slack announcements enabled", slog.String("channel", cfg.Slack.AnnounceChannel))
	}

	correlator := NewCorrelator(store, graphRepository, gitlabRepository, announcer, cfg.DuplicateDownCreate)
	engine := newEngine(NewWebhookHandler(correlator))

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server exited: %w", err)
	}
}

func newEngine(webhookHandler *WebhookHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	// どこで落ちてもJSONで応答する最終防衛線
	engine.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		slog.Error("Panic while handling request", slog.String("path", c.Request.URL.Path), slog.Any("err", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}))

	engine.GET("/webhook", webhookHandler.Handle)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return engine
}

func newCorrelationRepository(cfg *repository.Config) (repository.CorrelationRepository, error) {
	switch cfg.Store.Backend {
	case "dynamodb":
		return repository.NewDynamoDBRepository()
	case "redis":
		return repository.NewRedisRepository(&cfg.Store)
	}
	return repository.NewMemoryRepository(), nil
}
