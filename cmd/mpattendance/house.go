package main

import (
	"log/slog"

	"github.com/aluiziolira/mp-attendance/models"
	"github.com/aluiziolira/mp-attendance/pipeline"
	"github.com/aluiziolira/mp-attendance/scraper"
	"github.com/spf13/cobra"
)

var (
	housePage    int
	houseResolve bool
)

func init() {
	houseCmd.Flags().IntVar(&housePage, "page", 1, "House attendance page to fetch.")
	houseCmd.Flags().BoolVar(&houseResolve, "resolve", true, "Link names to roster member IDs.")
	rootCmd.AddCommand(houseCmd)
}

var houseCmd = &cobra.Command{
	Use:   "house [--page N]",
	Short: "Prints one page of the roster-wide attendance view.",
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

		var roster []models.Member
		if houseResolve {
			roster, err = p.DiscoverRoster(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("roster loaded for name resolution", slog.Int("members", len(roster)))
		}

		records, err := p.HouseAttendance(cmd.Context(), housePage)
		if err != nil {
			return err
		}

		printHouseRecords(cmd.OutOrStdout(), pipeline.ResolveHouseRecords(records, roster, cfg.NameMatchThreshold))
		if skipped := p.SkippedFragments()["house"]; skipped > 0 {
			slog.Info("house rows skipped", slog.Int("skipped", skipped))
		}
		return nil
	},
}
