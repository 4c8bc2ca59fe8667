// Package migrations embeds the MySQL schema for the goose programmatic API
// used by the migrate command.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
