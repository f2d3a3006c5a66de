package database

import "errors"

// ErrNoPath is returned by Open when no database path is configured.
var ErrNoPath = errors.New("database: path is required")
