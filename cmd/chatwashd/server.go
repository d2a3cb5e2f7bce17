package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"

	"github.com/chatwash/chatwash/chatmod/configstore"
	"github.com/chatwash/chatwash/chatmod/crypt"
	"github.com/chatwash/chatwash/chatmod/engine"
	"github.com/chatwash/chatwash/chatmod/groupmeta"
	"github.com/chatwash/chatwash/chatmod/userstore"
	"github.com/chatwash/chatwash/chatmod/visual"
	"github.com/chatwash/chatwash/chatmod/wordstore"
)

type Server struct {
	logger    *slog.Logger
	engine    *engine.Engine
	echo      *echo.Echo
	httpd     *http.Server
	persister *filePersister

	sweepInterval time.Duration
	sweepMaxAge   time.Duration
}

type Config struct {
	Logger *slog.Logger

	BotAPIHost string
	BotToken   string
	SelfID     int64
	NospamID   int64

	WordsFileJSON  string
	ConfigFileJSON string
	RedisURL       string

	EvidenceChannelID int64
	ExchangeChannelID int64

	SlackWebhookURL string
	QRHost          string
	QRPassword      string
	CryptSecret     string

	Bind          string
	SweepInterval time.Duration
	SweepMaxAge   time.Duration
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	words := wordstore.NewStore(logger, nil)
	var persister *filePersister
	if config.WordsFileJSON != "" {
		if err := words.LoadFromFileJSON(config.WordsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing word lists: %v", err)
		}
		logger.Info("loaded word lists from JSON", "path", config.WordsFileJSON)
		persister = newFilePersister(logger, words, config.WordsFileJSON)
		words.Persister = persister
	}

	configs := configstore.NewMemConfigStore()
	if config.ConfigFileJSON != "" {
		if err := configs.LoadFromFileJSON(config.ConfigFileJSON); err != nil {
			return nil, fmt.Errorf("initializing group config: %v", err)
		}
		logger.Info("loaded group config from JSON", "path", config.ConfigFileJSON)
	}

	var users userstore.UserStore
	if config.RedisURL != "" {
		ru, err := userstore.NewRedisUserStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis userstore: %v", err)
		}
		users = ru
	} else {
		users = userstore.NewMemUserStore()
	}

	bot := NewBotClient(config.BotAPIHost, config.BotToken, logger)
	exchange := &ChannelExchange{
		Bot:               bot,
		Logger:            logger,
		EvidenceChannelID: config.EvidenceChannelID,
		ExchangeChannelID: config.ExchangeChannelID,
	}

	eng := &engine.Engine{
		Logger:   logger,
		Words:    words,
		Users:    users,
		Configs:  configs,
		Chat:     bot,
		Exchange: exchange,
		Meta:     groupmeta.NewCache(logger, bot, 10_000, 5*time.Minute),
		SelfID:   config.SelfID,
		NospamID: config.NospamID,
	}
	if persister != nil {
		eng.Persist = persister
	}

	if config.SlackWebhookURL != "" {
		logger.Info("configuring slack audit notifier")
		eng.Notifier = &engine.SlackNotifier{SlackWebhookURL: config.SlackWebhookURL}
	}

	if config.QRHost != "" && config.QRPassword != "" {
		logger.Info("configuring QR decode service")
		qc := visual.NewQRServiceClient(config.QRHost, config.QRPassword)
		eng.QR = &qc
	}

	if config.CryptSecret != "" {
		box, err := crypt.NewBox(config.CryptSecret)
		if err != nil {
			return nil, fmt.Errorf("initializing crypt box: %v", err)
		}
		eng.Crypt = box
	}

	srv := &Server{
		logger:        logger,
		engine:        eng,
		persister:     persister,
		sweepInterval: config.SweepInterval,
		sweepMaxAge:   config.SweepMaxAge,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("4M"))

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/webhook", srv.HandleWebhook)
	e.POST("/preview/text", srv.HandlePreviewText)
	e.POST("/preview/image", srv.HandlePreviewImage)

	srv.echo = e
	srv.httpd = &http.Server{
		Handler:        e,
		Addr:           config.Bind,
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	return srv, nil
}

func (srv *Server) RunAPI(ctx context.Context) error {
	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	sweepCtx, cancelSweeps := context.WithCancel(ctx)
	go srv.runSweeper(sweepCtx)

	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		srv.logger.Info("received OS exit signal", "signal", sig)
		cancelSweeps()
		if err := srv.Shutdown(); err != nil {
			srv.logger.Error("HTTP server shutdown error", "err", err)
		}
		if srv.persister != nil {
			srv.persister.Close()
		}
		close(quit)
	}()
	<-quit
	srv.logger.Info("graceful shutdown complete")
	return nil
}

// runSweeper periodically deletes queued sticker and animation messages whose
// grace period has passed.
func (srv *Server) runSweeper(ctx context.Context) {
	interval := srv.sweepInterval
	if interval == 0 {
		interval = 30 * time.Second
	}
	maxAge := srv.sweepMaxAge
	if maxAge == 0 {
		maxAge = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := srv.engine.SweepDue(ctx, maxAge); n > 0 {
				srv.logger.Info("swept queued messages", "count", n)
			}
		}
	}
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.httpd.Shutdown(ctx)
}
