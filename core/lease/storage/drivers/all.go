// Package drivers imports all lease index drivers shipped with nextshort.
package drivers

import (
	// import all supported drivers
	_ "github.com/nextdhcp/nextshort/core/lease/storage/drivers/bolt"
	_ "github.com/nextdhcp/nextshort/core/lease/storage/drivers/memory"
)
