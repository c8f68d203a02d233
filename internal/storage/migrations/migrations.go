// Package migrations は PostgreSQL のスキーマ定義を埋め込みます。
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
