package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xengage/internal/config"
)

type runFlags struct {
	mode     string
	seed     string
	targets  []string
	subjects []string
	output   string
	format   string
	ranked   bool
	headful  bool
	asJSON   bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect engagement once and write the results",
		Long: `Run one collection in the configured mode and write the output file.

Modes:
  matrix        commenters of the seed post vs. repliers to each target's pinned or latest post
  pairwise      one live search per ordered pair of accounts
  first-degree  only the commenters of the seed post

Examples:
  xe run --seed https://x.com/alice/status/123 --targets carol,dave
  xe run --mode pairwise --subjects alice,bob,carol --output pairs.xlsx
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.openSession(cmd, func(cfg *config.Config) error {
				return f.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.app.Run(cmd.Context())
			if err != nil {
				return err
			}

			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nSaved %d rows to %s\n", len(res.Table.Records), res.OutputPath)
			return nil
		},
	}

	f.bind(cmd)
	return cmd
}

func (f *runFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.mode, "mode", "", "matrix|pairwise|first-degree")
	fl.StringVar(&f.seed, "seed", "", "URL of the seed post")
	fl.StringSliceVar(&f.targets, "targets", nil, "target account handles")
	fl.StringSliceVar(&f.subjects, "subjects", nil, "subject handles, instead of the seed post commenters")
	fl.StringVarP(&f.output, "output", "o", "", "output file path")
	fl.StringVar(&f.format, "format", "", "csv|xlsx (default: from the output extension)")
	fl.BoolVar(&f.ranked, "ranked", false, "sort rows by False_count")
	fl.BoolVar(&f.headful, "headful", false, "show the browser window")
	fl.BoolVar(&f.asJSON, "json", false, "print the result as JSON")
}

// apply overrides cfg with the flags that were set, then validates it
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("mode") {
		cfg.Run.Mode = strings.ToLower(strings.TrimSpace(f.mode))
	}
	if fl.Changed("seed") {
		cfg.Run.SeedPostURL = strings.TrimSpace(f.seed)
	}
	if fl.Changed("targets") {
		cfg.Run.Targets = f.targets
	}
	if fl.Changed("subjects") {
		cfg.Run.Subjects = f.subjects
	}
	if fl.Changed("output") {
		cfg.Run.OutputPath = f.output
		if !fl.Changed("format") {
			cfg.Run.OutputFormat = formatFromPath(f.output)
		}
	}
	if fl.Changed("format") {
		cfg.Run.OutputFormat = strings.ToLower(f.format)
	}
	if fl.Changed("ranked") {
		cfg.Run.Ranked = f.ranked
	}
	if fl.Changed("headful") {
		cfg.Scraping.Headless = !f.headful
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func formatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return config.FormatXLSX
	}
	return config.FormatCSV
}
