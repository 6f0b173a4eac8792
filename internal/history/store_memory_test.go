package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
)

func TestInMemory_AppendAssignsSequentialIDs(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	first, err := store.Append(ctx, &Record{Kind: KindDeposit, Amount: 100})
	require.NoError(t, err)
	second, err := store.Append(ctx, &Record{Kind: KindProposal, RefID: 1, Amount: 250})
	require.NoError(t, err)

	assert.Equal(t, id.TxID(1), first)
	assert.Equal(t, id.TxID(2), second)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestInMemory_GetReturnsCopy(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	txID, err := store.Append(ctx, &Record{Kind: KindRecurring, RefID: 7, Amount: 50, To: "recipient"})
	require.NoError(t, err)

	record, err := store.Get(ctx, txID)
	require.NoError(t, err)
	record.Amount = 9999

	again, err := store.Get(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), again.Amount)
}

func TestInMemory_GetMissing(t *testing.T) {
	store := NewInMemory()
	_, err := store.Get(context.Background(), 42)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}
