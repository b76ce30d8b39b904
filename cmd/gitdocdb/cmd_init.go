package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sosuisen/gitdocdb/internal/config"
)

var initCmd = &cobra.Command{
	Use:     "init [path]",
	GroupID: "data",
	Short:   "Write a starter config file",
	Long: `Write a starter gitdocdb.toml config file at path (default:
./gitdocdb.toml) holding default values and an empty github
connection table to fill in; the file contains no comments.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "gitdocdb.toml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteStarter(path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", path)
		return nil
	},
}
