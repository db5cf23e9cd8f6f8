// Package db embeds the SQL schema migrations so the server binary can
// apply them without shipping the migrations directory alongside it.
package db

import "embed"

// Migrations holds every *.sql file under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
