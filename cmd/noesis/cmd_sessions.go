package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored exploration sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	if !cfg.Store.Enabled {
		return fmt.Errorf("snapshot store disabled in config")
	}
	snapshots := openSnapshotStore()
	if snapshots == nil {
		return fmt.Errorf("snapshot store unavailable at %s", cfg.Store.DatabasePath)
	}
	defer snapshots.Close()

	ids, err := snapshots.Sessions()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}
	for _, id := range ids {
		cache, err := snapshots.LoadSession(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %d concepts\n", id, len(cache))
	}
	return nil
}
