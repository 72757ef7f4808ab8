package dataset

import (
	"github.com/stretchr/testify/mock"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Load() ([]Country, error) {
	args := m.Mock.Called()

	if v := args.Get(0); v != nil {
		return v.([]Country), args.Error(1)
	}

	return nil, args.Error(1)
}
