package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/linkmeta/internal/common"
	"github.com/dtnitsch/linkmeta/pkg/server"
)

const shutdownTimeout = 15 * time.Second

// ServeAction runs the HTTP API until the command context is cancelled
// (SIGINT or SIGTERM).
func ServeAction(c *cli.Context) error {
	ctx, stop := context.WithCancel(c.Context)
	defer stop()

	app, err := common.NewApp(c, true)
	if err != nil {
		return err
	}
	defer app.Close()

	api := server.New(server.Deps{
		Resolver: app.Resolver,
		Favicons: app.Favicons,
		Links:    app.DB,
		Refetch:  app.Refetch,
		Import:   app.Importer,
		Logger:   app.Logger,
	})

	httpServer := &http.Server{
		Addr:              app.Config.Server.Addr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("http shutdown error", "error", err)
		}
		api.Close()
	}()

	app.Logger.Info("linkmeta server listening", "addr", httpServer.Addr, "db", app.DB.Path())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-shutdownDone
		return fmt.Errorf("server error: %w", err)
	}
	<-shutdownDone
	app.Logger.Info("linkmeta server stopped")
	return nil
}
