// Package leasefile reads and writes the lease file: a snapshot of all
// active short address leases stored as a sequence of blocks
//
//	lease {
//		hwaddr 00:11:22:33:44:55:66:77;
//		shortaddr 0x8001;
//		timestamp 0x6553f100;
//	};
//
// Blocks are written in ascending short address order.
package leasefile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/nextdhcp/nextshort/core/lease"
)

// FileMode is used when the lease file is created
const FileMode os.FileMode = 0o644

// MaxTimestamp is the largest timestamp a lease record can hold
const MaxTimestamp = 0xffffffff

// CheckTimestamp returns an error if t cannot be stored as an unsigned
// 32 bit UNIX timestamp
func CheckTimestamp(t time.Time) error {
	if ts := t.Unix(); ts < 0 || ts > MaxTimestamp {
		return fmt.Errorf("timestamp %s is out of range", t.UTC().Format(time.RFC3339))
	}

	return nil
}

// Write writes one record per lease to w ordered by short address
func Write(w io.Writer, leases []lease.Lease) error {
	sorted := make([]lease.Lease, len(leases))
	copy(sorted, leases)
	sort.Sort(lease.ByShortAddr(sorted))

	buf := bufio.NewWriter(w)
	for _, l := range sorted {
		if err := writeRecord(buf, l); err != nil {
			return err
		}
	}

	return buf.Flush()
}

func writeRecord(w io.Writer, l lease.Lease) error {
	if err := CheckTimestamp(l.LastSeen); err != nil {
		return fmt.Errorf("lease %s: %w", l.ShortAddr, err)
	}

	_, err := fmt.Fprintf(w, "lease {\n\thwaddr %s;\n\tshortaddr 0x%04x;\n\ttimestamp 0x%08x;\n};\n",
		l.HwAddr, uint16(l.ShortAddr), uint32(l.LastSeen.Unix()))

	return err
}

// WriteFile replaces the content of the file at path with leases. The
// file is created if it does not exist yet
func WriteFile(path string, leases []lease.Lease) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FileMode)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	return Write(f, leases)
}
