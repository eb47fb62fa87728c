package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codyseavey/magicgest/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDeckID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid deck id %q", arg)
	}
	return uint(id), nil
}

func newSnapshotCmd(a *app) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record the current collection value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := models.ParsePlatform(platform)
			if err != nil {
				return err
			}
			snapshot, err := a.snapshots.TakeSnapshot(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snapshot)
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Price platform (default scryfall_usd)")
	return cmd
}

func newRecordPricesCmd(a *app) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "record-prices",
		Short: "Record today's price for every collection card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := models.ParsePlatform(platform)
			if err != nil {
				return err
			}
			result, err := a.prices.RecordCollectionPrices(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Price platform (default scryfall_usd)")
	return cmd
}

func newCheckAlertsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-alerts",
		Short: "Evaluate active price alerts against cached prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.alerts.CheckAlerts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newExportDeckCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-deck <deck-id>",
		Short: "Print a deck as a plain-text decklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeckID(args[0])
			if err != nil {
				return err
			}
			filename, text, err := a.export.Deck(cmd.Context(), id)
			if err != nil {
				return err
			}
			switch output {
			case "":
				_, err = io.WriteString(cmd.OutOrStdout(), text)
				return err
			case ".":
				output = filename
			}
			if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `Write to this file instead of stdout ("." uses the deck name)`)
	return cmd
}

func newAnalyzeDeckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze-deck <deck-id>",
		Short: "Print the legality analysis and suggestions for a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeckID(args[0])
			if err != nil {
				return err
			}
			analysis, err := a.decks.Analyze(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), analysis)
		},
	}
}
