package testutil

import (
	"context"

	"github.com/warebill/warebill/internal/postgres"
)

// MockPostgresClient satisfies postgres.IClient for service tests. The
// in-memory stores have no transactions, so WithTx just runs the function;
// atomicity assertions in tests work through the stores' own checks instead.
type MockPostgresClient struct{}

var _ postgres.IClient = (*MockPostgresClient)(nil)

func NewMockPostgresClient() *MockPostgresClient {
	return &MockPostgresClient{}
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
