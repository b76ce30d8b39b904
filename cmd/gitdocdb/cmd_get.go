package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:     "get <id>",
	GroupID: "data",
	Short:   "Print a document as JSON",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		doc, err := db.Get(args[0])
		if err != nil {
			return err
		}
		enc, err := json.MarshalIndent(doc.Doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(enc))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	GroupID: "data",
	Short:   "Delete a document",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if err := db.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "deleted %s\n", args[0])
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:     "find <prefix>",
	GroupID: "data",
	Short:   "List documents whose id starts with prefix",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		docs, err := db.Find(args[0])
		if err != nil {
			return err
		}
		for _, doc := range docs {
			fmt.Fprintln(os.Stdout, doc.ID)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:     "history <id>",
	GroupID: "data",
	Short:   "List the commits that touched a document, newest first",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		commits, err := db.GetHistory(args[0])
		if err != nil {
			return err
		}
		for _, c := range commits {
			fmt.Fprintf(os.Stdout, "%s %s\n", c.ShortOID(), c.Message)
		}
		return nil
	},
}
