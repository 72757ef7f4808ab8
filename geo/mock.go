package geo

import (
	"net"

	"github.com/stretchr/testify/mock"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Country(ip net.IP) (*Record, error) {
	args := m.Mock.Called(ip)

	if v := args.Get(0); v != nil {
		return v.(*Record), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockProvider) Close() error {
	return nil
}
