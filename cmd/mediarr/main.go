package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mmcdole/mediarr/internal/cache"
	"github.com/mmcdole/mediarr/internal/config"
	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/log"
	"github.com/mmcdole/mediarr/internal/mediaserver"
	"github.com/mmcdole/mediarr/internal/mediaserver/shared"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `Usage: mediarr [flags] <command> [args]

Commands:
  setup [url]            detect the server, sign in and save the connection
  test                   verify the saved connection
  status                 show server identity and capabilities
  libraries [filter]     list libraries, fuzzy-filtered by title
  properties             list rule properties
  resolve -item ID [-type T] [-exclude a,b] [property...]
                         resolve rule properties of an item
  expand [-type T] -select TYPE[:ID] <mediaID>
                         expand a hierarchy selection into item ids
  warm <libraryID>       pre-build the watched index of a library

Flags:
`

func main() {
	var showVersion bool
	var configPath string
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configPath, "config", "", "config file (default ~/.config/mediarr/config.yaml)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("mediarr %s\n", Version)
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, configPath, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, failure(err.Error()))
		os.Exit(1)
	}
}

// app carries what every command needs
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *cache.Store
	term   *terminal
}

func run(ctx context.Context, configPath, command string, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, closer, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	} else {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting mediarr", "version", Version, "command", command)

	// Open the cache
	backend, err := cache.OpenBackend(cfg.Cache.Backend, cfg.Cache.Path, cfg.Cache.RedisAddr, cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	opts, err := cfg.CacheOptions()
	if err != nil {
		return err
	}
	store := cache.New(backend, append(opts, cache.WithLogger(logger))...)
	defer store.Close()

	a := &app{cfg: cfg, logger: logger, store: store, term: newTerminal()}

	switch command {
	case "setup":
		return a.setup(ctx, args)
	case "test":
		return a.test(ctx)
	case "status":
		return a.status(ctx)
	case "libraries":
		return a.libraries(ctx, args)
	case "properties":
		return a.properties()
	case "resolve":
		return a.resolve(ctx, args)
	case "expand":
		return a.expand(ctx, args)
	case "warm":
		return a.warm(ctx, args)
	default:
		return fmt.Errorf("unknown command %q, run mediarr -h for usage", command)
	}
}

func (a *app) transportOptions() shared.TransportOptions {
	return shared.TransportOptions{
		Timeout:       a.cfg.Transport.Timeout,
		RatePerSecond: a.cfg.Transport.RatePerSecond,
		Burst:         a.cfg.Transport.Burst,
		MaxRetries:    a.cfg.Transport.MaxRetries,
	}
}

// newAdapter builds the adapter for the saved server without connecting.
// A missing server type is detected from the url.
func (a *app) newAdapter(ctx context.Context) (domain.MediaServer, error) {
	if !a.cfg.IsConfigured() {
		return nil, errors.New("no media server configured, run mediarr setup first")
	}

	serverType := a.cfg.Server.Type
	if serverType == "" {
		detected, err := mediaserver.DetectServerType(ctx, a.cfg.Server.URL, a.logger)
		if err != nil {
			return nil, fmt.Errorf("could not detect server type: %w", err)
		}
		serverType = detected
	}

	return mediaserver.NewAdapter(serverType, a.cfg.Settings(), a.store, a.transportOptions(), a.logger)
}

// connect builds and initializes the adapter. The adapter is left initialized
// on exit so a persistent cache survives between runs.
func (a *app) connect(ctx context.Context) (domain.MediaServer, error) {
	server, err := a.newAdapter(ctx)
	if err != nil {
		return nil, err
	}
	if err := server.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return server, nil
}

func serverName(t domain.ServerType) string {
	switch t {
	case domain.ServerTypePlex:
		return "Plex Media Server"
	case domain.ServerTypeJellyfin:
		return "Jellyfin"
	default:
		return "Unknown"
	}
}
