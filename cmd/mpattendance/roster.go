package main

import (
	"github.com/aluiziolira/mp-attendance/pipeline"
	"github.com/aluiziolira/mp-attendance/scraper"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rosterCmd)
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Prints the members discovered in the directory listing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		fetcher, err := scraper.NewFetcher(cfg)
		if err != nil {
			return err
		}

		p := pipeline.New(cfg, fetcher, fetcher.Metrics)
		members, err := p.DiscoverRoster(cmd.Context())
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return pipeline.ErrEmptyRoster
		}

		printMembers(cmd.OutOrStdout(), members)
		return nil
	},
}
