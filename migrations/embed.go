// Package migrations embeds the relayshell SQL schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/relayshell/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
