package main

import (
	"github.com/spf13/cobra"

	"github.com/idlesign/webinardump/internal/pipeline"
)

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <title>",
		Short: "Show the progress of an unfinished dump",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			log, err := a.logger(cfg)
			if err != nil {
				return usageError{err}
			}

			st, err := pipeline.Inspect(cmd.Context(), cfg.TargetDir, args[0], log)
			if err != nil {
				return err
			}

			if st.Published {
				a.printf("Published: %s\n", pipeline.PublishedPath(cfg.TargetDir, args[0]))
			}
			if st.InProgress {
				a.printf("Dump directory: %s\n", st.Dir)
				a.printf("Segments recorded: %d\n", st.Recorded)
				a.printf("Segment files: %d\n", st.Segments)
			}
			return nil
		},
	}
}

func (a *app) cleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean <title>",
		Short: "Remove the working directory of an abandoned dump",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			dir, err := pipeline.Clean(cfg.TargetDir, args[0])
			if err != nil {
				return err
			}

			a.printf("Removed %s\n", dir)
			return nil
		},
	}
}
