// Package config loads shadowd's configuration from (in priority order)
// command-line flags, environment variables (SHADOWD_ prefix), an optional
// YAML config file, then built-in defaults. Grounded on the teacher's
// loadConfig (dunnart.go), generalized from a single-binary config to the
// full option table in SPEC_FULL.md §6.
package config

import (
	"os"

	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	cfgyaml "github.com/warthog618/config/blob/decoder/yaml"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"
)

// defaults mirrors SPEC_FULL.md §6's recognized-options table.
func defaults() *dict.Getter {
	d := dict.New()
	d.Set("bind_api", ":8080")
	d.Set("mqtt.bind_v3", ":8883")
	d.Set("mqtt.bind_v5", ":8884")
	d.Set("mqtt.queue_size", 1024)
	d.Set("mqtt.connection_event_buffer", 64)
	d.Set("database.path", "./shadowd.bbolt")
	d.Set("database.backup_path", "./shadowd-backups")
	d.Set("database.backup_period", "1h")
	d.Set("database.create_if_missing", true)
	d.Set("database.txn_retries", 5)
	d.Set("processor.shadow_topic_prefix", "shadowd")
	d.Set("processor.extra_update_topics", []string{})
	d.Set("cert_dir", "./certs")
	d.Set("tenant_id", "default")
	d.Set("server_name", "shadowd")
	d.Set("host_names", []string{"localhost"})
	d.Set("metrics.bind", ":9464")
	d.Set("log.level", "info")
	d.Set("log.format", "json")

	host, err := os.Hostname()
	if err == nil {
		d.Set("node_id", host)
	}
	return d
}

// Load builds the layered config stack: flags > env > config file >
// defaults. configFile is the path flag default, overridable with -c.
func Load(configFile string) *config.Config {
	def := defaults()
	s := config.NewStack(
		pflag.New(pflag.WithFlags([]pflag.Flag{
			{Short: 'c', Name: "config-file"},
		})),
		env.New(env.WithEnvPrefix("SHADOWD_")),
	)
	cfg := config.New(s, config.WithDefault(def))
	s.Append(blob.NewConfigFile(cfg, "config-file", configFile, cfgyaml.NewDecoder()))
	s.Append(def)
	return config.New(s)
}
