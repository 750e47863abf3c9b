package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yegors/routemap/internal/api"
	"github.com/yegors/routemap/internal/config"
	"github.com/yegors/routemap/internal/mapview"
	"github.com/yegors/routemap/internal/ourairports"
	"github.com/yegors/routemap/internal/scene"
	"github.com/yegors/routemap/internal/storage/sqlite"
	"github.com/yegors/routemap/internal/websocket"
	"github.com/yegors/routemap/pkg/logger"
	"golang.org/x/net/netutil"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	importOnly := flag.Bool("import", false, "import the OurAirports data set and exit")
	update := flag.Bool("update", false, "download the latest OurAirports data set before importing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *update {
		cfg.Data.AutoUpdate = true
	}

	if err := run(ctx, cfg, log, *importOnly); err != nil {
		log.Error("Exiting", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, importOnly bool) error {
	db, err := sqlite.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	airports, err := sqlite.NewAirportStorage(db, cfg.Storage.CacheSize, cfg.Storage.CacheTTL(), log)
	if err != nil {
		return fmt.Errorf("failed to initialize airport storage: %w", err)
	}

	if err := importAirports(ctx, cfg, airports, log, importOnly); err != nil {
		return err
	}
	if importOnly {
		return nil
	}

	engine := scene.NewEngine(cfg.Map.ModuleLoadDelay(), log)
	container := mapview.Container(cfg.Map.Container)

	mapView := mapview.NewController(engine, mapview.Options{
		Basemap:           cfg.Map.Basemap,
		NextBasemap:       cfg.Map.NextBasemap,
		Zoom:              cfg.Map.Zoom,
		LabelColor:        cfg.Map.LabelColor,
		RunwayMinScale:    cfg.Map.RunwayMinScale,
		DensifyMaxSegment: cfg.Map.DensifyMaxSegment,
	}, log)
	if err := mapView.Mount(ctx, container); err != nil {
		return fmt.Errorf("failed to mount map view: %w", err)
	}
	defer mapView.Unmount()

	wsServer := websocket.NewServer(log)
	defer wsServer.Close()

	publisher := scene.NewPublisher(engine, container, wsServer, cfg.Map.PublishInterval(), log)
	wsServer.Welcome = publisher.Current
	go publisher.Run(ctx)

	router := api.NewRouter(airports, mapView, engine, wsServer, cfg, log)
	server := &http.Server{
		Handler: router.Routes(),
		// Read and write deadlines would outlive the hijack and cut the
		// websocket stream, so only the header read is bounded.
		ReadHeaderTimeout: cfg.Server.ReadTimeout(),
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}
	if cfg.Server.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.Server.MaxConnections)
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server",
			logger.String("addr", cfg.Server.Addr()),
			logger.Int("max_connections", cfg.Server.MaxConnections))
		serverErr <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout()+5*time.Second)
	defer cancel()

	wsServer.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}

// importAirports refreshes the OurAirports files when they are stale and
// auto update is on, then imports them when forced, freshly downloaded, or
// when the database is empty
func importAirports(ctx context.Context, cfg *config.Config, airports *sqlite.AirportStorage, log *logger.Logger, force bool) error {
	if cfg.Data.AutoUpdate {
		client := ourairports.NewClient(cfg.Data.DownloadURL, cfg.Data.OurAirportsDir, cfg.Data.DownloadTimeout(), log)
		if now := time.Now(); client.NeedsUpdate(now) {
			if err := client.Update(ctx, now); err != nil {
				log.Error("Failed to update airport data; keeping the local copy", logger.Error(err))
			} else {
				force = true
			}
		}
	}

	count, err := airports.CountAirports(ctx)
	if err != nil {
		return err
	}

	if count > 0 && !force && !cfg.Data.ImportOnStart {
		log.Info("Using stored airport data", logger.Int("airports", count))
		return nil
	}

	if _, err := os.Stat(cfg.Data.OurAirportsDir); err != nil {
		if force {
			return fmt.Errorf("OurAirports directory %s: %w", cfg.Data.OurAirportsDir, err)
		}
		log.Warn("No OurAirports data to import; airport lookups will fail until it is provided",
			logger.String("dir", cfg.Data.OurAirportsDir))
		return nil
	}

	start := time.Now()
	data, err := ourairports.NewLoader(cfg.Data.OurAirportsDir, log).Import(ctx, airports)
	if err != nil {
		return fmt.Errorf("failed to import airports: %w", err)
	}

	log.Info("Imported airport data",
		logger.Int("airports", len(data.Airports)),
		logger.Duration("duration", time.Since(start)))
	return nil
}
