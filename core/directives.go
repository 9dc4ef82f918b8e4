package core

import (
	// Include all built-in directives
	_ "github.com/nextdhcp/nextshort/plugin/database"
	_ "github.com/nextdhcp/nextshort/plugin/gotify"
	_ "github.com/nextdhcp/nextshort/plugin/leasefile"
	_ "github.com/nextdhcp/nextshort/plugin/log"
	_ "github.com/nextdhcp/nextshort/plugin/lua"
	_ "github.com/nextdhcp/nextshort/plugin/mqtt"
	_ "github.com/nextdhcp/nextshort/plugin/prometheus"
	_ "github.com/nextdhcp/nextshort/plugin/ranges"
)
