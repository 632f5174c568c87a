package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	parking "github.com/MostafaGamal7/parking-realtime"
	"github.com/MostafaGamal7/parking-realtime/internal/auth"
	"github.com/MostafaGamal7/parking-realtime/internal/client"
	"github.com/MostafaGamal7/parking-realtime/internal/config"
	"github.com/MostafaGamal7/parking-realtime/internal/realtime"
	"github.com/MostafaGamal7/parking-realtime/internal/watch"
	"github.com/MostafaGamal7/parking-realtime/pkg/api"
	"github.com/MostafaGamal7/parking-realtime/pkg/log"
)

type gatewatch struct {
	cfg       *config.Config
	tokens    realtime.TokenProvider
	rest      client.Client
	stream    *realtime.Client
	zones     *watch.ZoneBoard
	tickets   *watch.TicketWatch
	admin     *watch.AdminFeed
	gateIDs   []string
	ticketIDs []string
}

const statusInterval = time.Second

var (
	ErrNoTopics      = errors.New("nothing to watch: pass --gate, --ticket or --admin")
	ErrInvalidTopic  = errors.New("invalid topic")
	ErrStreamStopped = errors.New("event stream stopped")
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Gatewatch failed", log.Error(err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    parking.Name,
		Usage:   "Watch live parking updates",
		Version: parking.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "Environment file loaded before configuration",
			},
		},
		Before: func(c *cli.Context) error {
			return loadEnvFile(c.String("env-file"))
		},
		Commands: []*cli.Command{
			watchCmd(),
		},
	}
}

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"w"},
		Usage:   "Subscribe to gates, tickets or the admin channel",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "gate",
				Usage: "Gate id to watch (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "ticket",
				Usage: "Ticket id to watch (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "admin",
				Usage: "Watch the admin channel",
			},
		},
		Action: func(c *cli.Context) error {
			gates := c.StringSlice("gate")
			tickets := c.StringSlice("ticket")
			topics, err := buildTopics(gates, tickets, c.Bool("admin"))
			if err != nil {
				return err
			}

			cfg := config.NewDefaultConfig()
			if err := cfg.LoadFromEnv(); err != nil {
				return err
			}
			setupLogging(cfg)

			g, err := newGatewatch(cfg, gates, tickets)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(
				c.Context, syscall.SIGINT, syscall.SIGTERM,
			)
			defer stop()
			return g.run(ctx, topics)
		},
	}
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func setupLogging(cfg *config.Config) {
	level, ok := log.ParseLevel(cfg.LogLevel)
	logger := log.NewWithLevel(
		parking.Name, os.Getenv("ENV"), parking.Version, level,
	)
	slog.SetDefault(logger)
	if !ok {
		slog.Warn("Unknown log level, using info",
			slog.String("log_level", cfg.LogLevel))
	}

	slog.Info("Configuration loaded",
		slog.String("ws_url", cfg.WebSocketURL),
		slog.String("api_url", cfg.APIURL),
		slog.Int("max_attempts", cfg.Reconnect.MaxAttempts),
		slog.Duration("base_delay", cfg.Reconnect.BaseDelay),
		slog.Duration("max_delay", cfg.Reconnect.MaxDelay))
}

// buildTopics validates the requested ids and turns them into topics
func buildTopics(gates, tickets []string, admin bool) ([]api.Topic, error) {
	var res []api.Topic
	add := func(t api.Topic) error {
		if err := t.ValidateEntity(); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidTopic, t, err)
		}
		res = append(res, t)
		return nil
	}
	for _, id := range gates {
		if err := add(api.GateTopic(id)); err != nil {
			return nil, err
		}
	}
	for _, id := range tickets {
		if err := add(api.TicketTopic(id)); err != nil {
			return nil, err
		}
	}
	if admin {
		res = append(res, api.AdminTopic)
	}
	if len(res) == 0 {
		return nil, ErrNoTopics
	}
	return res, nil
}

func newGatewatch(
	cfg *config.Config, gateIDs, ticketIDs []string,
) (*gatewatch, error) {
	g := &gatewatch{
		cfg:       cfg,
		admin:     watch.NewAdminFeed(watch.DefaultAdminFeedSize),
		gateIDs:   gateIDs,
		ticketIDs: ticketIDs,
	}
	if cfg.TokenFile != "" {
		g.tokens = auth.NewFileStore(cfg.TokenFile)
	}

	var err error
	g.tickets, err = watch.NewTicketWatch(watch.DefaultTicketCacheSize)
	if err != nil {
		return nil, err
	}
	g.zones = watch.NewZoneBoard(watch.WithZoneChange(logZone))
	g.rest = client.NewHTTPClient(cfg, g.tokens)

	g.stream, err = realtime.New(cfg, realtime.Dependencies{
		Tokens: g.tokens,
		Logger: slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (g *gatewatch) run(ctx context.Context, topics []api.Topic) error {
	defer g.stream.Close()
	g.start(ctx, topics)
	return g.wait(ctx)
}

func (g *gatewatch) start(ctx context.Context, topics []api.Topic) {
	g.loadInitialState(ctx)

	g.stream.AddListener(g.zones.Handle)
	g.stream.AddListener(g.tickets.Handle)
	g.stream.AddListener(g.admin.Handle)
	g.stream.AddListener(logMessage)

	for _, t := range topics {
		g.stream.Subscribe(t)
	}
	slog.Info("Watching topics",
		slog.Any("topics", topics))
}

func (g *gatewatch) loadInitialState(ctx context.Context) {
	for _, id := range g.gateIDs {
		zones, err := g.rest.GetZones(ctx, id)
		if err != nil {
			slog.Warn("Failed to load zones",
				slog.String("gate_id", id),
				log.Error(err))
			continue
		}
		g.zones.Seed(zones...)
		slog.Info("Zones loaded",
			slog.String("gate_id", id),
			slog.Int("count", len(zones)))
	}

	for _, id := range g.ticketIDs {
		tk, err := g.rest.GetTicket(ctx, id)
		if err != nil {
			slog.Warn("Failed to load ticket",
				slog.String("ticket_id", id),
				log.Error(err))
			continue
		}
		g.tickets.Put(*tk)
	}
}

// wait blocks until ctx is done or the stream gives up reconnecting,
// logging every connection status change
func (g *gatewatch) wait(ctx context.Context) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	last := g.stream.ConnectionStatus()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down")
			return nil
		case <-ticker.C:
			if err := g.stream.LastError(); errors.Is(
				err, realtime.ErrReconnectExhausted,
			) {
				return fmt.Errorf("%w: %w", ErrStreamStopped, err)
			}
			cur := g.stream.ConnectionStatus()
			if cur != last {
				slog.Info("Connection status changed",
					slog.String("from", string(last)),
					slog.String("to", string(cur)))
				last = cur
			}
		}
	}
}

func logZone(z api.Zone) {
	slog.Info("Zone updated",
		slog.String("zone_id", z.ID),
		slog.String("name", z.Name),
		slog.Int("free", z.Free),
		slog.Int("available_slots", z.AvailableSlots),
		slog.Bool("open", z.Open),
		slog.Bool("disabled", z.IsDisabled))
}

func logMessage(m api.Message) {
	switch m.Type {
	case api.MessageTicketUpdate, api.MessageAdminUpdate:
		slog.Info("Update received",
			log.MessageType(m.Type),
			slog.String("payload", string(m.Payload)))
	case api.MessageZoneUpdate:
	default:
		slog.Debug("Unhandled message",
			log.MessageType(m.Type))
	}
}
