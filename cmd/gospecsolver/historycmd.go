package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/speclab/gospeccore/pkg/export"
	"github.com/speclab/gospeccore/pkg/history"
)

var flagZipOutput string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and export saved processing results",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(flagHistoryDir)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("history is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%-24s %s\n", e.Name, e.Timestamp)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print one history entry as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(flagHistoryDir)
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Load(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var historyRenameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a history entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(flagHistoryDir)
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.Rename(args[0], args[1])
		if err != nil {
			return err
		}
		log.Printf("renamed %q to %q", args[0], entry.Name)
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export-zip",
	Short: "Export all history entries as a ZIP of CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(flagHistoryDir)
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := os.Create(flagZipOutput)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := export.WriteBatchZip(f, store); err != nil {
			return err
		}
		log.Printf("wrote %s", flagZipOutput)
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().StringVar(&flagHistoryDir, "history-dir", "./spectra_history", "History directory")
	historyExportCmd.Flags().StringVarP(&flagZipOutput, "output", "o", "histories.zip", "ZIP output path")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRenameCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
