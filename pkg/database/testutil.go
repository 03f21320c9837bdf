package database

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool returns a pgxmock pool that satisfies DBTX. When the test ends
// the pool reports any unmet expectations and is closed.
func NewMockPool(tb testing.TB) pgxmock.PgxPoolIface {
	tb.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		tb.Fatalf("create pgxmock pool: %v", err)
	}
	tb.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			tb.Errorf("pgxmock: %v", err)
		}
		mock.Close()
	})
	return mock
}
