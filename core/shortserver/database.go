package shortserver

import (
	"context"
	"errors"
	"io/fs"

	"github.com/nextdhcp/nextshort/core/lease/storage"
	"github.com/nextdhcp/nextshort/core/leasefile"
)

func openDatabase(cfg *Config) error {
	// If the database is already opened we can bail out
	if cfg.Database != nil {
		return nil
	}

	if err := cfg.Range.Validate(); err != nil {
		return err
	}

	index, err := storage.Open(cfg.Driver, cfg.DriverOptions)
	if err != nil {
		return err
	}

	cfg.Index = index
	cfg.Database = storage.NewDatabase(index,
		storage.WithRange(cfg.Range),
		storage.WithLogger(cfg.logger),
	)

	if err := replayLeaseFile(context.Background(), cfg); err != nil {
		cfg.Close()
		return err
	}

	return nil
}

// replayLeaseFile restores all leases stored in the lease file. The
// file is only replayed into an empty index. A driver that persists
// leases on its own is authoritative since the lease file may be older
// than its content and still hold released leases
func replayLeaseFile(ctx context.Context, cfg *Config) error {
	if cfg.LeaseFile == "" {
		return nil
	}

	existing, err := cfg.Index.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		cfg.logger.Infof("%s index already holds %d leases, not replaying %s", cfg.Driver, len(existing), cfg.LeaseFile)
		return nil
	}

	leases, err := leasefile.ReadFile(cfg.LeaseFile)
	if errors.Is(err, fs.ErrNotExist) {
		cfg.logger.Infof("lease file %s does not exist yet", cfg.LeaseFile)
		return nil
	}
	if err != nil {
		return err
	}

	restored := 0
	for _, l := range leases {
		if err := cfg.Database.Restore(ctx, l); err != nil {
			cfg.logger.Warnf("skipping lease %s: %s", l.String(), err.Error())
			continue
		}

		restored++
	}

	cfg.logger.Infof("restored %d of %d leases from %s", restored, len(leases), cfg.LeaseFile)

	return nil
}
