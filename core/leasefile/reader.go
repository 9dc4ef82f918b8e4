package leasefile

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caddyserver/caddy/caddyfile"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/shortaddr"
)

// Read parses all lease records from r. filename is only used for
// error messages
func Read(filename string, r io.Reader) ([]lease.Lease, error) {
	d := caddyfile.NewDispenser(filename, r)

	var leases []lease.Lease
	for d.Next() {
		if d.Val() != "lease" {
			return nil, d.SyntaxErr("lease")
		}

		l, err := readRecord(&d)
		if err != nil {
			return nil, err
		}

		leases = append(leases, l)
	}

	return leases, nil
}

// ReadFile parses all lease records stored in the file at path
func ReadFile(path string) ([]lease.Lease, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(path, f)
}

func readRecord(d *caddyfile.Dispenser) (lease.Lease, error) {
	var l lease.Lease
	var hasHW, hasShort, hasLastSeen bool

	if !d.Next() || d.Val() != "{" {
		return l, d.SyntaxErr("{")
	}

	for {
		if !d.Next() {
			return l, d.Err("unexpected end of lease record")
		}

		key := d.Val()
		if key == "};" {
			break
		}

		if !d.NextArg() {
			return l, d.ArgErr()
		}

		value := d.Val()
		if !strings.HasSuffix(value, ";") {
			return l, d.Errf("missing ';' after %s", key)
		}
		value = strings.TrimSuffix(value, ";")

		switch key {
		case "hwaddr":
			hw, err := shortaddr.ParseHardwareAddr(value)
			if err != nil {
				return l, d.Err(err.Error())
			}
			l.HwAddr = hw
			hasHW = true

		case "shortaddr":
			addr, err := shortaddr.ParseShortAddr(value)
			if err != nil {
				return l, d.Err(err.Error())
			}
			l.ShortAddr = addr
			hasShort = true

		case "timestamp":
			ts, err := strconv.ParseUint(strings.TrimPrefix(value, "0x"), 16, 32)
			if err != nil {
				return l, d.Errf("invalid timestamp %q", value)
			}
			l.LastSeen = time.Unix(int64(ts), 0)
			hasLastSeen = true

		default:
			return l, d.Errf("unknown lease property %q", key)
		}
	}

	if !hasHW || !hasShort || !hasLastSeen {
		return l, d.Err("incomplete lease record: hwaddr, shortaddr and timestamp are required")
	}

	return l, nil
}
