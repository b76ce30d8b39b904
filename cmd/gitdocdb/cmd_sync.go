package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sosuisen/gitdocdb/internal/syncengine"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Reconcile the local repository with a remote",
}

var syncRunCmd = &cobra.Command{
	Use:   "run <remote-url>",
	Short: "Run one sync cycle against remote-url",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		auth, err := syncengine.BuildAuth(opts.Connection)
		if err != nil {
			return err
		}

		result, err := db.Sync(cmd.Context(), args[0], auth)
		if err != nil {
			return err
		}
		changed := len(result.Changes.Local) + len(result.Changes.Remote)
		fmt.Fprintf(os.Stdout, "%s: %d changed file(s)\n", result.Action, changed)
		return nil
	},
}

var syncLiveCmd = &cobra.Command{
	Use:   "live <remote-url>",
	Short: "Sync against remote-url periodically until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		auth, err := syncengine.BuildAuth(opts.Connection)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := db.StartLiveSync(ctx, args[0], auth); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "live-syncing against %s, press Ctrl+C to stop\n", args[0])
		<-ctx.Done()
		db.StopLiveSync(args[0])
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncRunCmd, syncLiveCmd)
}
