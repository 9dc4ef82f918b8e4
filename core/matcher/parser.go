package matcher

import (
	"strings"

	"github.com/caddyserver/caddy/caddyfile"
)

// ParseConditions parses the block following the current token for if and
// if_op conditions and returns them as a single, concatenated expression
// string usable for govaluate.NewEvaluableExpression() and similar. The
// dispenser is passed by value so the caller's position is not modified
func ParseConditions(disp caddyfile.Dispenser) (string, error) {
	var conds []string
	var op = "&&"

	for disp.NextBlock() {
		switch disp.Val() {
		case "if":
			args := disp.RemainingArgs()
			if len(args) == 0 {
				return "", disp.ArgErr()
			}
			conds = append(conds, strings.Join(args, " "))

		case "if_op":
			if !disp.NextArg() {
				return "", disp.ArgErr()
			}

			switch disp.Val() {
			case "and", "&&":
				op = "&&"
			case "or", "||":
				op = "||"
			default:
				return "", disp.Errf("unsupported if_op %q", disp.Val())
			}

		default:
			// skip the arguments of all other keys
			disp.RemainingArgs()
		}
	}

	return joinConditions(conds, op), nil
}

func joinConditions(conds []string, op string) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		if strings.TrimSpace(c) == "" {
			continue
		}
		parts = append(parts, "("+c+")")
	}

	return strings.Join(parts, " "+op+" ")
}
