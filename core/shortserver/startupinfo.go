package shortserver

import (
	"context"
	"fmt"
)

func getStartupInfo(ctx context.Context, cfg []*Config) string {
	s := ""

	for _, c := range cfg {
		count := 0
		if c.Database != nil {
			if leases, err := c.Database.Leases(ctx); err == nil {
				count = len(leases)
			}
		}

		s += fmt.Sprintf("\t%s: short addresses %s (%d leases, %s driver)\n", c.Name, c.Range, count, c.Driver)
	}

	if s != "" {
		s = "Serving the following coordinators\n" + s
	}

	return s
}
