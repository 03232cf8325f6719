package main

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavesd/internal/library"
)

func init() {
	libraryCmd.AddCommand(libraryAddCmd)
	rootCmd.AddCommand(libraryCmd)
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the local music library",
}

var libraryAddCmd = &cobra.Command{
	Use:   "add [paths...]",
	Short: "Scan directories into the library",
	Long: "Scan directories into the library. Without arguments the library_sources " +
		"from the config file are rescanned. Tracks whose files are gone are removed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cleanup, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		sources := args
		if len(sources) == 0 {
			sources = cfg.LibrarySources
		}
		if len(sources) == 0 {
			return errors.New("no paths given and no library_sources configured")
		}

		path := cfg.Library.DBPath
		if path == "" {
			if path, err = library.DefaultPath(); err != nil {
				return err
			}
		}
		lib, err := library.Open(path, nil)
		if err != nil {
			return err
		}
		defer lib.Close()

		stats, err := lib.Add(cmd.Context(), sources)
		if err != nil {
			return err
		}
		total, err := lib.TrackCount(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("added %d, updated %d, removed %d, failed %d (%s tracks)\n",
			stats.Added, stats.Updated, stats.Removed, stats.Failed, humanize.Comma(int64(total)))
		return nil
	},
}
