package main

import (
	"github.com/spf13/cobra"

	"github.com/sosuisen/gitdocdb/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gitdocdb",
	Short: "Offline-first JSON document database backed by a Git repository",
	Long: `gitdocdb stores JSON documents as files in a Git repository and
serializes every write through a single queue, so a working directory
can be read and written offline and reconciled with a remote later.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a gitdocdb config file (TOML/YAML/JSON)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Document commands:"},
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
	)

	rootCmd.AddCommand(initCmd, putCmd, getCmd, deleteCmd, findCmd, historyCmd, syncCmd)
}

func loadOptions() (config.Options, error) {
	return config.Load(configPath)
}
