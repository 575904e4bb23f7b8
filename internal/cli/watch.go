package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xengage/internal/scheduler"
)

// jobTimeout bounds one scheduled run
const jobTimeout = 3 * time.Hour

func newWatchCmd(g *globalFlags) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run on the configured cron schedule until interrupted",
		Long: `Run on schedule.cron in schedule.timezone. The config file is re-read
before every run; an invalid edit keeps the previous configuration. A run
still in progress when the next tick arrives skips that tick.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.cfg.ValidateSchedule(); err != nil {
				return err
			}

			sched, err := scheduler.New(cmd.Context(), s.cfg.Schedule.Timezone, jobTimeout, s.log)
			if err != nil {
				return err
			}

			job := func(ctx context.Context) error {
				if err := s.app.ReloadConfig(g.loadConfig); err != nil {
					s.log.Warn().Err(err).Msg("keeping previous configuration")
				}
				_, err := s.app.Run(ctx)
				return err
			}
			if err := sched.AddRunJob(s.cfg.Schedule.Cron, job); err != nil {
				return err
			}

			if runNow {
				if err := sched.RunNow(scheduler.RunJobName, job); err != nil {
					s.log.Error().Err(err).Msg("initial run failed")
				}
			}

			sched.Start()
			for _, j := range sched.ListJobs() {
				fmt.Fprintf(cmd.OutOrStdout(), "Next %s run at %s\n", j.Name, j.NextRun.Format(time.RFC1123))
			}

			<-cmd.Context().Done()
			<-sched.Stop().Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&runNow, "now", false, "run once immediately before waiting for the schedule")
	return cmd
}
