package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// starterTemplate is what WriteStarter emits: a plain TOML config
// (without comments) a user fills in by hand before their first Open call.
type starterTemplate struct {
	DBName                     string     `toml:"db_name"`
	LocalDir                   string     `toml:"local_dir"`
	Serialization              string     `toml:"serialization"`
	Connection                 Connection `toml:"connection"`
	ConflictResolutionStrategy string     `toml:"conflict_resolution_strategy"`
}

// WriteStarter writes a minimal TOML config file to path, for a user
// to edit rather than hand-assemble an Options literal.
func WriteStarter(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	tmpl := starterTemplate{
		DBName:                     "mydb",
		LocalDir:                   "./mydb",
		Serialization:              "json",
		Connection:                 Connection{Type: ConnectionGitHub},
		ConflictResolutionStrategy: "ours-diff",
	}
	return toml.NewEncoder(f).Encode(tmpl)
}
