package main

import (
	"fmt"

	"github.com/alfredjeanlab/kalender/internal/calendar"
	"github.com/alfredjeanlab/kalender/internal/contentstore"
	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List events in the content store",
	GroupID: "site",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		category, _ := cmd.Flags().GetString("category")
		area, _ := cmd.Flags().GetString("area")

		evs, err := contentstore.New(cfg.ContentStore()).ListEvents(cmd.Context())
		if err != nil {
			return err
		}

		v := calendar.NewView(cfg.PageSize, cfg.Location)
		v.SetCategory(category)
		v.SetArea(area)
		out := v.Filter(evs)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), out)
		}
		printEventTable(cmd.OutOrStdout(), out, cfg.Location)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <slug>",
	Short:   "Show one event",
	GroupID: "site",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ev, err := contentstore.New(cfg.ContentStore()).GetEventBySlug(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if ev == nil {
			return fmt.Errorf("event %q not found", args[0])
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ev)
		}
		printEventDetail(cmd.OutOrStdout(), ev, cfg.Location)
		return nil
	},
}

func init() {
	listCmd.Flags().String("category", model.AllOption, "only events in this category")
	listCmd.Flags().String("area", model.AllOption, "only events tagged with this area")
}
