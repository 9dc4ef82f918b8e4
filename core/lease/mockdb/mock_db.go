package mockdb

import (
	"context"
	"io"

	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/shortaddr"
	"github.com/stretchr/testify/mock"
)

// MockDatabase is used to simplify testing code that requires a lease.Database
type MockDatabase struct {
	mock.Mock
}

// Allocate implements the lease.Database interface
func (m *MockDatabase) Allocate(_ context.Context, hw shortaddr.HardwareAddr) (shortaddr.ShortAddr, error) {
	args := m.Called(hw)
	return args.Get(0).(shortaddr.ShortAddr), args.Error(1)
}

// ReleaseByHW implements the lease.Database interface
func (m *MockDatabase) ReleaseByHW(_ context.Context, hw shortaddr.HardwareAddr) error {
	return m.Called(hw).Error(0)
}

// ReleaseByShort implements the lease.Database interface
func (m *MockDatabase) ReleaseByShort(_ context.Context, addr shortaddr.ShortAddr) error {
	return m.Called(addr).Error(0)
}

// Restore implements the lease.Database interface
func (m *MockDatabase) Restore(_ context.Context, l lease.Lease) error {
	return m.Called(l).Error(0)
}

// Leases implements the lease.Database interface
func (m *MockDatabase) Leases(context.Context) ([]lease.Lease, error) {
	args := m.Called()

	return args.Get(0).([]lease.Lease), args.Error(1)
}

// WriteTo implements the lease.Database interface
func (m *MockDatabase) WriteTo(_ context.Context, w io.Writer) error {
	return m.Called(w).Error(0)
}

// Dump implements the lease.Database interface
func (m *MockDatabase) Dump(_ context.Context, path string) error {
	return m.Called(path).Error(0)
}

// compile time check
var _ lease.Database = &MockDatabase{}
