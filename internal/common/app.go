package common

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/db"
	"github.com/dtnitsch/linkmeta/pkg/favicon"
	"github.com/dtnitsch/linkmeta/pkg/fetcher"
	"github.com/dtnitsch/linkmeta/pkg/importer"
	"github.com/dtnitsch/linkmeta/pkg/refetch"
	"github.com/dtnitsch/linkmeta/pkg/resolver"
)

// NewLogger builds the JSON stderr logger shared by all actions.
// --quiet wins over --debug.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("debug") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads --config (if set) and applies flag overrides.
func LoadConfig(c *cli.Context) (models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return models.Config{}, err
	}
	if c.IsSet("db") {
		cfg.DB.Path = c.String("db")
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("public-url") {
		cfg.Favicon.PublicURL = c.String("public-url")
	}
	if c.IsSet("workers") {
		cfg.Import.Concurrency = c.Int("workers")
	}
	if c.IsSet("allow-private") {
		cfg.Fetch.BlockPrivateNetworks = !c.Bool("allow-private")
	}
	if err := cfg.Validate(); err != nil {
		return models.Config{}, err
	}
	return cfg, nil
}

// App holds the components an action needs. Close releases the database.
type App struct {
	Config   models.Config
	Logger   *slog.Logger
	Fetcher  *fetcher.Fetcher
	Resolver *resolver.Resolver
	Favicons *favicon.Proxy
	DB       *db.DB
	Refetch  *refetch.Controller
	Importer *importer.Importer
}

// NewApp wires every component from the CLI context. When withDB is false no
// database is opened and the store-backed components are nil.
func NewApp(c *cli.Context, withDB bool) (*App, error) {
	logger := NewLogger(c)
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	f := fetcher.FromConfig(cfg.Fetch, logger)
	res := resolver.FromConfig(f, cfg.Resolver, logger)
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Fetcher:  f,
		Resolver: res,
		Favicons: favicon.FromConfig(f, cfg.Favicon, logger),
	}
	if !withDB {
		return app, nil
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.DB = database
	app.Refetch = refetch.FromConfig(res, database, cfg, logger)
	app.Importer = importer.FromConfig(res, database, cfg, logger)
	return app, nil
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
