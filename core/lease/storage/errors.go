package storage

import (
	"errors"
	"fmt"

	"github.com/nextdhcp/nextshort/core/shortaddr"
)

type (
	// ErrDuplicateHwAddr is returned by the index if the hardware
	// address already has a short address assigned
	ErrDuplicateHwAddr struct {
		// HwAddr is the hardware address that is used multiple times
		HwAddr shortaddr.HardwareAddr

		// ShortAddr holds the short address currently bound to HwAddr
		ShortAddr shortaddr.ShortAddr
	}

	// ErrDuplicateShortAddr is returned by the index if a short
	// address is already used in a lease
	ErrDuplicateShortAddr struct {
		// ShortAddr holds the short address that is used multiple times
		ShortAddr shortaddr.ShortAddr

		// HwAddr is the hardware address that has ShortAddr assigned
		HwAddr shortaddr.HardwareAddr
	}

	// ErrHwAddrNotFound is returned when there's no lease for the
	// hardware address in question
	ErrHwAddrNotFound struct {
		HwAddr shortaddr.HardwareAddr
	}

	// ErrShortAddrNotFound is returned when the short address in
	// question is not leased
	ErrShortAddrNotFound struct {
		ShortAddr shortaddr.ShortAddr
	}
)

func (e *ErrDuplicateHwAddr) Error() string {
	return fmt.Sprintf("%s already has short address %s assigned", e.HwAddr, e.ShortAddr)
}

func (e *ErrDuplicateShortAddr) Error() string {
	return fmt.Sprintf("%s already used by %s", e.ShortAddr, e.HwAddr)
}

func (e *ErrHwAddrNotFound) Error() string {
	return fmt.Sprintf("no lease for %s", e.HwAddr)
}

func (e *ErrShortAddrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.ShortAddr)
}

// IsNotFound returns true if err is a hardware or short address
// not found error
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var hwErr *ErrHwAddrNotFound
	var shortErr *ErrShortAddrNotFound

	return errors.As(err, &hwErr) || errors.As(err, &shortErr)
}

// IsDuplicateKey returns true if err reports that either the hardware
// or the short address of a lease is already in use
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	var hwErr *ErrDuplicateHwAddr
	var shortErr *ErrDuplicateShortAddr

	return errors.As(err, &hwErr) || errors.As(err, &shortErr)
}
