// Package migrations embeds the schema migrations so binaries do not depend
// on a migrations directory being present at runtime.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
