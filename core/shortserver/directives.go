package shortserver

// Directives that we register at caddy. The order matters: shutdown
// callbacks run in directive order so the lease file is dumped before
// the database is closed
var Directives = []string{
	"log",
	"range",
	"leasefile",
	"database",
	"prometheus",
	"mqtt",
	"gotify",
	"lua",
}
