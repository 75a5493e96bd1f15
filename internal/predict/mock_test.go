package predict

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockWarper struct {
	mock.Mock
}

func (m *mockWarper) Resample(ctx context.Context, src, dst string, cellSize float64) error {
	args := m.Called(ctx, src, dst, cellSize)
	return args.Error(0)
}

func (m *mockWarper) Crop(ctx context.Context, src, dst, mask string) error {
	args := m.Called(ctx, src, dst, mask)
	return args.Error(0)
}
