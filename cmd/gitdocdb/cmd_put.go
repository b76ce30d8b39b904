package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:     "put <id> <json>",
	GroupID: "data",
	Short:   "Insert or update a document",
	Long: `Put writes json (a JSON object) as the document named id,
generating a monotonic id when id is the empty string "".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var body map[string]any
		if err := json.Unmarshal([]byte(args[1]), &body); err != nil {
			return fmt.Errorf("put: decoding json: %w", err)
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		doc, err := db.Put(args[0], body)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "put %s (%s)\n", doc.ID, doc.FileOid[:7])
		return nil
	},
}
