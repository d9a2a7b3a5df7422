// Package migrations embeds the acecore SQL migrations into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/ace-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

// FS returns the embedded migration files.
func FS() embed.FS {
	return migrationsFS
}

func init() {
	database.MigrationsFS = migrationsFS
}
