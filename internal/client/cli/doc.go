// Package cli implements the confessions command-line client.
//
// Commands:
//
//	identify [--force]                 obtain or refresh the identity token
//	submit [text...] [--lat --lon]     post a confession (text from args or stdin)
//	feed [--order] [--limit] [--all]   list confessions, trending or recent
//	view <id>                          record a view of a confession
//	status                             can this device post today?
//
// Global flags --config, --server and --db override the JSON config file.
package cli
