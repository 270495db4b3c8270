package loyalty

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
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
	require.NoError(t, db.AutoMigrate(&Membership{}))
	return db
}

func TestJoinTwice(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	userID := uuid.NewString()

	require.NoError(t, ledger.Join(ctx, userID))
	require.ErrorIs(t, ledger.Join(ctx, userID), ErrAlreadyMember)

	member, err := ledger.IsMember(ctx, userID)
	require.NoError(t, err)
	require.True(t, member)
}

func TestBalanceForNonMember(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)

	balance, err := ledger.Balance(context.Background(), uuid.NewString())
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestGrantRequiresMembership(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	userID := uuid.NewString()

	require.NoError(t, ledger.Grant(ctx, userID, 50))

	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	require.Zero(t, balance)

	member, err := ledger.IsMember(ctx, userID)
	require.NoError(t, err)
	require.False(t, member)
}

func TestDebitClampsAtZero(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	userID := uuid.NewString()

	require.NoError(t, ledger.Join(ctx, userID))
	require.NoError(t, ledger.Grant(ctx, userID, 30))
	require.NoError(t, ledger.Debit(ctx, userID, 100))

	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestSettleNet(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	userID := uuid.NewString()

	require.NoError(t, ledger.Join(ctx, userID))
	require.NoError(t, ledger.Grant(ctx, userID, 200))

	// earned 150, redeemed 200 -> net -50
	require.NoError(t, ledger.Settle(ctx, userID, 150, 200))

	balance, err := ledger.Balance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 150, balance)
}

func TestCancelRemovesMembership(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	userID := uuid.NewString()

	require.NoError(t, ledger.Join(ctx, userID))
	require.NoError(t, ledger.Cancel(ctx, userID))

	member, err := ledger.IsMember(ctx, userID)
	require.NoError(t, err)
	require.False(t, member)
}
