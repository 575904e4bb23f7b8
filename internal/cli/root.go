// Package cli implements the xe command tree.
package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xengage/internal/app"
	"github.com/ibeckermayer/xengage/internal/auth"
	"github.com/ibeckermayer/xengage/internal/config"
	"github.com/ibeckermayer/xengage/internal/logging"
	"github.com/ibeckermayer/xengage/internal/notifier"
	"github.com/ibeckermayer/xengage/internal/store"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	logLevel   string
}

// NewRootCmd returns the root command for the xe CLI
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "xe",
		Short:         "Map who engages with whom on X",
		Long:          "xe scrolls X.com feeds in a real browser and writes an engagement matrix of who replied to which accounts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file, TOML or YAML (default is the user config dir)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override logging.level (debug|info|warn|error)")

	rootCmd.AddCommand(newRunCmd(g))
	rootCmd.AddCommand(newLoginCmd(g))
	rootCmd.AddCommand(newLogoutCmd(g))
	rootCmd.AddCommand(newWatchCmd(g))
	rootCmd.AddCommand(newOpenCmd(g))
	rootCmd.AddCommand(newHistoryCmd(g))
	rootCmd.AddCommand(newSecretCmd(g))
	rootCmd.AddCommand(newBotTestCmd())

	return rootCmd
}

func (g *globalFlags) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.Load()
}

func (g *globalFlags) logger(cfg *config.Config, out io.Writer) (zerolog.Logger, io.Closer, error) {
	lc := cfg.Logging
	if g.logLevel != "" {
		lc.Level = g.logLevel
	}
	return logging.New(lc, out)
}

// session is everything a command needs to drive the app
type session struct {
	cfg   *config.Config
	log   zerolog.Logger
	app   *app.App
	store *store.Store
	close func()
}

// openSession loads the config, builds the logger and wires the app.
// mutate, if set, adjusts the config before it is validated.
func (g *globalFlags) openSession(cmd *cobra.Command, mutate func(*config.Config) error) (*session, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		if err := mutate(cfg); err != nil {
			return nil, err
		}
	}

	log, logCloser, err := g.logger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	cookiePath, err := auth.DefaultCookieStorePath()
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to get cookie store path: %w", err)
	}
	authManager := auth.NewManager(auth.NewCookieStore(cookiePath), log)

	st, err := openStore(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("run history disabled")
	}

	var steps *store.StepCache
	if dir, err := config.CacheDir(); err == nil {
		steps = store.NewStepCache(dir)
	}

	var n *notifier.Notifier
	if cfg.Email.Enabled {
		n, err = notifier.NewFromConfig(cfg.Email)
		if err != nil {
			log.Warn().Err(err).Msg("email summary disabled")
		}
	}

	a := app.New(cfg, app.Deps{
		Auth:     authManager,
		Store:    st,
		Steps:    steps,
		Notifier: n,
		Out:      cmd.OutOrStdout(),
		Log:      log,
	})

	return &session{
		cfg:   cfg,
		log:   log,
		app:   a,
		store: st,
		close: func() {
			if st != nil {
				st.Close()
			}
			logCloser.Close()
		},
	}, nil
}

// openStore opens the run history database, or returns nil when disabled
func openStore(cfg *config.Config) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}
	path := cfg.Store.Path
	if path == "" {
		dir, err := config.CacheDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "xengage.db")
	}
	return store.New(path)
}
