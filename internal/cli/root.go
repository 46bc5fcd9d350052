// Package cli wires the predicacal commands: the HTTP server and one-shot
// render, export and import jobs that share the same config and store.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"predicacal/internal/cache"
	"predicacal/internal/config"
	appLog "predicacal/internal/log"
	"predicacal/internal/service"
	"predicacal/internal/store"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "/etc/predicacal/config.yaml"

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion records build information injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

type app struct {
	configPath string
	listen     string
	verbose    bool

	cfg *config.Config
	out io.Writer
}

// NewRootCommand builds the command tree. Command output that is not a
// log line goes to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "predicacal",
		Short:         "Printable month calendars for field service schedules",
		Long:          `predicacal keeps a schedule of appointments and renders it as a one-page PDF month grid, ICS calendars and a subscription feed.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("predicacal %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", DefaultConfigPath, "path to config file (.yaml or .toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newRenderCmd())
	root.AddCommand(a.newExportCmd())
	root.AddCommand(a.newImportCmd())
	return root
}

// loadConfig reads the config file and applies the log level. --verbose
// wins over log_level.
func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", a.configPath, err)
	}
	a.cfg = cfg

	level := appLog.ParseLevel(cfg.LogLevel)
	if a.verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return nil
}

// openService opens the configured store and cache. The returned close
// function releases both.
func (a *app) openService(ctx context.Context) (*service.Service, func(), error) {
	loc, err := service.LoadLocation(a.cfg.Timezone)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(ctx, a.cfg.Storage, loc)
	if err != nil {
		return nil, nil, err
	}
	c, err := cache.Open(ctx, a.cfg.Cache)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	svc, err := service.New(a.cfg, service.Deps{Store: st, Cache: c})
	if err != nil {
		_ = c.Close()
		_ = st.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := c.Close(); err != nil {
			appLog.Warn("cache close failed", "err", err)
		}
		if err := st.Close(); err != nil {
			appLog.Warn("store close failed", "err", err)
		}
	}
	return svc, closeFn, nil
}
