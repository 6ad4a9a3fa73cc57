// Package cli implements galleryctl, a terminal front end for the gallery:
// like mutations, item details, category listings and index uploads.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"face-gallery/internal/config"
	"face-gallery/internal/observability"
	"face-gallery/internal/services"
)

// app carries what the subcommands share
type app struct {
	catalogIndex int
	logLevel     string

	cfg       *config.Config
	logger    *observability.Logger
	container *services.Container
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "galleryctl",
		Short: "Like, inspect and list gallery images from the terminal",
		Long: `galleryctl drives the face gallery without a browser.

It reads the same configuration as the server (environment variables or a
.env file), sends like mutations to the gallery endpoint and prints the
resulting alerts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			a.cfg = cfg
			a.logger = observability.NewLoggerTo(os.Stderr, observability.Config{
				ServiceName: "galleryctl",
				Environment: cfg.Environment,
				LogLevel:    a.logLevel,
				LogFormat:   "console",
			})
			return nil
		},
	}

	cmd.PersistentFlags().IntVarP(&a.catalogIndex, "catalog", "c", 0, "Index of the gallery catalog to use")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newCategoriesCmd(a),
		newShowCmd(a),
		newLikeCmd(a, "like"),
		newLikeCmd(a, "unlike"),
		newBatchLikeCmd(a),
		newInfoCmd(a),
		newIndexCmd(a),
	)
	a.closeAfterRun(cmd)

	return cmd
}

// closeAfterRun wraps every RunE so the container is closed whether the
// command succeeded or not; cobra skips PersistentPostRunE after a failure
func (a *app) closeAfterRun(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		a.closeAfterRun(sub)
	}
	if cmd.RunE == nil {
		return
	}
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, a.close())
		}()
		return run(cmd, args)
	}
}

func (a *app) close() error {
	if a.container == nil {
		return nil
	}
	container := a.container
	a.container = nil
	return container.Close()
}

// services builds the container on first use. Alerts go to the terminal and
// images are only probed on request.
func (a *app) services(ctx context.Context, cmd *cobra.Command) (*services.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	container, err := services.NewContainer(ctx, a.cfg, a.logger,
		services.WithNotifier(NewTerminalNotifier(cmd.ErrOrStderr())),
		services.WithoutBackgroundLoads(),
	)
	if err != nil {
		return nil, err
	}
	a.container = container
	return container, nil
}
