// Package config loads a database's Options from a config file,
// environment variables, and defaults, layered with viper the way the
// rest of this codebase's dependencies are put to work rather than
// hand-rolled.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConnectionType names how a Sync handle authenticates to its remote.
type ConnectionType string

const (
	ConnectionGitHub ConnectionType = "github"
	ConnectionSSH    ConnectionType = "ssh"
	ConnectionNone   ConnectionType = "none"
)

// CombineStrategy controls what happens when two histories share no
// merge base.
type CombineStrategy string

const (
	CombineHeadWithTheirs CombineStrategy = "combine-head-with-theirs"
	CombineThrow          CombineStrategy = "throw"
	CombineNop            CombineStrategy = "nop"
)

// Connection configures how a Sync handle reaches its remote.
type Connection struct {
	Type                ConnectionType `mapstructure:"type"`
	PersonalAccessToken string         `mapstructure:"personal_access_token"`
	PrivateKeyPath      string         `mapstructure:"private_key_path"`
	PublicKeyPath       string         `mapstructure:"public_key_path"`
	Private             bool           `mapstructure:"private"`
}

// Options is a database's full set of open-time configuration.
type Options struct {
	DBName                     string          `mapstructure:"db_name"`
	LocalDir                   string          `mapstructure:"local_dir"`
	Serialization              string          `mapstructure:"serialization"`
	NamePrefix                 string          `mapstructure:"name_prefix"`
	Connection                 Connection      `mapstructure:"connection"`
	ConflictResolutionStrategy string          `mapstructure:"conflict_resolution_strategy"`
	KeyOfUniqueArray           []string        `mapstructure:"key_of_unique_array"`
	Interval                   time.Duration   `mapstructure:"interval"`
	NetworkRetry               int             `mapstructure:"network_retry"`
	NetworkRetryInterval       time.Duration   `mapstructure:"network_retry_interval"`
	NetworkTimeout             time.Duration   `mapstructure:"network_timeout"`
	IncludeCommits             bool            `mapstructure:"include_commits"`
	Live                       bool            `mapstructure:"live"`
	CombineDBStrategy          CombineStrategy `mapstructure:"combine_db_strategy"`
	AuthorName                 string          `mapstructure:"author_name"`
	AuthorEmail                string          `mapstructure:"author_email"`
}

// minInterval is the floor periodic sync intervals are clamped to.
const minInterval = 3 * time.Second

// defaults populates v with every Options default value before a
// config file or environment variables are layered on top.
func defaults(v *viper.Viper) {
	v.SetDefault("serialization", "json")
	v.SetDefault("conflict_resolution_strategy", "ours-diff")
	v.SetDefault("interval", 30*time.Second)
	v.SetDefault("network_retry", 3)
	v.SetDefault("network_retry_interval", 2*time.Second)
	v.SetDefault("network_timeout", 7*time.Second)
	v.SetDefault("combine_db_strategy", string(CombineThrow))
	v.SetDefault("connection.type", string(ConnectionNone))
	v.SetDefault("author_name", "gitdocdb")
	v.SetDefault("author_email", "gitdocdb@localhost")
}

// Load reads Options from configPath (if non-empty and present),
// overlaid with GITDOCDB_-prefixed environment variables, overlaid
// with defaults for anything left unset.
func Load(configPath string) (Options, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("gitdocdb")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("config: decoding options: %w", err)
	}

	if opts.Interval < minInterval {
		opts.Interval = minInterval
	}

	return opts, nil
}
