package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "chatwashd",
		Usage:   "group anti-spam daemon (keeps the chat clean)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "bot-api-host",
			Usage:   "scheme, hostname, and port of the Bot API server",
			Value:   "https://api.telegram.org",
			EnvVars: []string{"BOT_API_HOST"},
		},
		&cli.StringFlag{
			Name:    "bot-token",
			Usage:   "Bot API authentication token",
			EnvVars: []string{"BOT_TOKEN"},
		},
		&cli.Int64Flag{
			Name:    "self-id",
			Usage:   "this bot's own account id",
			EnvVars: []string{"SELF_ID"},
		},
		&cli.Int64Flag{
			Name:    "nospam-id",
			Usage:   "account id of the cooperating moderator bot",
			EnvVars: []string{"NOSPAM_ID"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for user state; empty for in-memory",
			EnvVars: []string{"REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "words-file-json",
			Usage:   "file path of word list JSON to load (and persist hits to)",
			EnvVars: []string{"WORDS_FILE_JSON"},
		},
		&cli.StringFlag{
			Name:    "config-file-json",
			Usage:   "file path of group configuration JSON to load",
			EnvVars: []string{"CONFIG_FILE_JSON"},
		},
		&cli.Int64Flag{
			Name:    "evidence-channel-id",
			Usage:   "channel receiving forwarded evidence copies",
			EnvVars: []string{"EVIDENCE_CHANNEL_ID"},
		},
		&cli.Int64Flag{
			Name:    "exchange-channel-id",
			Usage:   "channel carrying peer coordination records",
			EnvVars: []string{"EXCHANGE_CHANNEL_ID"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "Slack webhook URL for audit notifications",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "qr-host",
			Usage:   "scheme, hostname, and port of the QR decode service",
			EnvVars: []string{"QR_HOST"},
		},
		&cli.StringFlag{
			Name:    "qr-password",
			Usage:   "admin auth password for the QR decode service",
			EnvVars: []string{"QR_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "crypt-secret",
			Usage:   "shared secret for encrypting exchanged watch records",
			EnvVars: []string{"CRYPT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3899",
			EnvVars: []string{"CHATWASH_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3898",
			EnvVars: []string{"CHATWASH_METRICS_LISTEN"},
		},
		&cli.DurationFlag{
			Name:    "sweep-interval",
			Usage:   "how often to run the queued sticker sweeper",
			Value:   30 * time.Second,
			EnvVars: []string{"SWEEP_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "sweep-max-age",
			Usage:   "grace period before a queued sticker is deleted",
			Value:   5 * time.Minute,
			EnvVars: []string{"SWEEP_MAX_AGE"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		srv, err := NewServer(Config{
			Logger:            logger,
			BotAPIHost:        cctx.String("bot-api-host"),
			BotToken:          cctx.String("bot-token"),
			SelfID:            cctx.Int64("self-id"),
			NospamID:          cctx.Int64("nospam-id"),
			WordsFileJSON:     cctx.String("words-file-json"),
			ConfigFileJSON:    cctx.String("config-file-json"),
			RedisURL:          cctx.String("redis-url"),
			EvidenceChannelID: cctx.Int64("evidence-channel-id"),
			ExchangeChannelID: cctx.Int64("exchange-channel-id"),
			SlackWebhookURL:   cctx.String("slack-webhook-url"),
			QRHost:            cctx.String("qr-host"),
			QRPassword:        cctx.String("qr-password"),
			CryptSecret:       cctx.String("crypt-secret"),
			Bind:              cctx.String("bind"),
			SweepInterval:     cctx.Duration("sweep-interval"),
			SweepMaxAge:       cctx.Duration("sweep-max-age"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.RunAPI(ctx); err != nil {
			return fmt.Errorf("failed to run anti-spam service: %w", err)
		}
		return nil
	},
}
