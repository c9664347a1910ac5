// Package db embeds the SQL schema applied by the startup migration runner.
package db

import _ "embed"

// Schema holds the DDL for the order graph, payment, refund, promotion,
// shipping, tax and API key tables.
//
//go:embed migrations/001_schema.sql
var Schema string
