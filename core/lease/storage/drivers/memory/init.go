package memory

import "github.com/nextdhcp/nextshort/core/lease/storage"

func init() {
	storage.MustRegister("memory", func(_ map[string][]string) (storage.Index, error) {
		return New(), nil
	})
}
