package main

import (
	"time"

	"github.com/sosuisen/gitdocdb/internal/database"
)

func openDatabase() (*database.Database, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}
	return database.Open(opts)
}

func closeDatabase(db *database.Database) {
	_ = db.Close(5*time.Second, false)
}
