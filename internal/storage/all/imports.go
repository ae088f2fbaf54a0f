// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: importing it (usually as a blank import
// from the wiring layer) runs the init functions of each backend package,
// which register their factories and DDL bootstrappers with the storage
// package. A binary that only needs one backend can import that backend's
// package directly instead.
package all

import (
	_ "bugingest/internal/storage/postgres"
	_ "bugingest/internal/storage/sqlite"
)
