package cli

import (
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xengage/internal/config"
)

func newOpenCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|cache|output>",
		Short:     "Open the config file, the cache directory or the latest output",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"config", "cache", "output"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "config":
				path, err := ensureConfigFile()
				if err != nil {
					return err
				}
				return browser.OpenFile(path)
			case "cache":
				dir, err := config.CacheDir()
				if err != nil {
					return err
				}
				if err := os.MkdirAll(dir, 0755); err != nil {
					return err
				}
				return browser.OpenFile(dir)
			case "output":
				s, err := g.openSession(cmd, nil)
				if err != nil {
					return err
				}
				defer s.close()
				return s.app.OpenOutput()
			default:
				return fmt.Errorf("unknown target %q, expected config, cache or output", args[0])
			}
		},
	}
}

// ensureConfigFile returns the config path, writing the defaults there on
// first use
func ensureConfigFile() (string, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Default().SaveFile(path); err != nil {
			return "", fmt.Errorf("failed to create default config: %w", err)
		}
	}
	return path, nil
}
