// Package config defines the JSON-serializable configuration model for the
// ingestion pipeline. It is intentionally small, explicit, and free of
// third-party configuration libraries: a pipeline file is decoded with
// encoding/json and passed through the program without additional glue.
//
// Example:
//
//	{
//	  "job": "bugzilla_archive",
//	  "source":  { "kind": "dir", "dir": { "path": ".bugs" } },
//	  "storage": { "kind": "postgres",
//	               "db": { "dsn": "postgresql://...", "auto_create_tables": true } },
//	  "runtime": { "log_every": 500 }
//	}
package config

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the ingestion run for metrics labeling and log context.
	Job string `json:"job"`

	// Source describes where snapshot blobs come from.
	Source Source `json:"source"`

	// Storage selects and configures the destination database.
	Storage Storage `json:"storage"`

	// Runtime holds knobs that do not change semantics.
	Runtime RuntimeConfig `json:"runtime"`
}

// Source identifies the snapshot source. Additional kinds can be added over
// time; the current value is "dir".
type Source struct {
	Kind string    `json:"kind"`
	Dir  SourceDir `json:"dir"`
}

// SourceDir holds configuration for the "dir" source kind.
type SourceDir struct {
	// Path is the local directory holding one JSON blob per archived bug.
	Path string `json:"path"`
}

// Storage selects the database sink.
type Storage struct {
	// Kind selects the storage backend: "postgres" or "sqlite".
	Kind string `json:"kind"`

	// DB configures the selected backend.
	DB DBConfig `json:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	// DSN is the backend connection string (pgxpool URL for postgres, file
	// path or ":memory:" for sqlite).
	DSN string `json:"dsn"`

	// AutoCreateTables applies the destination DDL (CREATE TABLE IF NOT
	// EXISTS for all six tables) before the run.
	AutoCreateTables bool `json:"auto_create_tables"`
}

// RuntimeConfig holds non-semantic runtime knobs.
type RuntimeConfig struct {
	// LogEvery emits a progress line every N processed files; 0 uses the
	// default.
	LogEvery int `json:"log_every"`
}
