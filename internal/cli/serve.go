package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jovyan/nbtemplates/internal/config"
	"github.com/jovyan/nbtemplates/internal/contents"
	"github.com/jovyan/nbtemplates/internal/server"
	"github.com/jovyan/nbtemplates/internal/templates"
)

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the template catalog server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Listen.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Listen.Port = servePort
		}

		logger := newLogger()

		loader, cleanup, err := buildLoader(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		srv, err := server.New(cfg, logger, loader)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}

// buildLoader selects the enumeration backend from configuration. The
// returned cleanup releases backend resources and is safe to call always.
func buildLoader(cfg *config.Config, logger zerolog.Logger) (templates.Loader, func(), error) {
	if cfg.LocalFiles {
		roots := cfg.Roots()
		logger.Info().Str("paths", strings.Join(roots, ":")).Msg("template search paths")

		opts := []templates.LocalOption{templates.WithExtensions(cfg.AllowedExtensions)}
		if cfg.IncludeDefault {
			opts = append(opts, templates.WithBuiltin(templates.BuiltinFS()))
		}
		return templates.NewLocalLoader(logger, roots, opts...), func() {}, nil
	}

	store, err := contents.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return nil, func() {}, err
	}
	logger.Info().Str("store", cfg.Store.Path).Int("groups", len(cfg.StoreGroups)).Msg("using content store backend")

	loader := templates.NewStoreLoader(logger, store, cfg.StoreGroups)
	return loader, func() { store.Close() }, nil
}
