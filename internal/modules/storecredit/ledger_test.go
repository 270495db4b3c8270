package storecredit

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Credit{}))
	return db
}

func TestIssueAndFirstAvailable(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	userID := uuid.NewString()

	none, err := ledger.FirstAvailable(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, none)

	c, err := ledger.Issue(ctx, userID, decimal.RequireFromString("5.00"), uuid.NewString())
	require.NoError(t, err)
	require.Equal(t, StatusAvailable, c.Status)
	require.Equal(t, "5.00", c.Amount.StringFixed(2))

	got, err := ledger.FirstAvailable(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, c.ID, got.ID)
}

func TestConsumeOnce(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	c, err := ledger.Issue(ctx, uuid.NewString(), decimal.RequireFromString("12.50"), "")
	require.NoError(t, err)

	orderID := uuid.NewString()
	require.NoError(t, ledger.Consume(ctx, c.ID, orderID))

	got, err := ledger.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUsed, got.Status)
	require.NotNil(t, got.UsedOrderID)
	require.Equal(t, orderID, *got.UsedOrderID)

	err = ledger.Consume(ctx, c.ID, uuid.NewString())
	require.ErrorIs(t, err, ErrCreditUnavailable)
}

func TestConsumeConcurrentSingleWinner(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	c, err := ledger.Issue(ctx, uuid.NewString(), decimal.RequireFromString("3.00"), "")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ledger.Consume(ctx, c.ID, uuid.NewString())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, e := range errs {
		if e == nil {
			wins++
		} else {
			require.ErrorIs(t, e, ErrCreditUnavailable)
		}
	}
	require.Equal(t, 1, wins)
}
