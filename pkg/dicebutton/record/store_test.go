package record_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
)

// storeContract runs the Store contract against an implementation.
func storeContract(t *testing.T, newStore func(t *testing.T) record.Store) {
	ctx := context.Background()

	newRecord := func(flowID uuid.UUID, channelID, messageID int64) *record.FlowRecord {
		return &record.FlowRecord{
			FlowID:        flowID,
			GuildID:       1,
			Message:       record.MessageRef{ChannelID: channelID, MessageID: messageID},
			CommandID:     "hold_reroll",
			ConfigClassID: "HoldRerollConfig",
			Config:        []byte("sidesOfDie: 6\n"),
		}
	}

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		_, err := store.Get(ctx, record.MessageRef{ChannelID: 1, MessageID: 2})
		assert.ErrorIs(t, err, record.ErrNotFound)

		_, err = store.ByFlowID(ctx, uuid.New())
		assert.ErrorIs(t, err, record.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		flowID := uuid.New()
		require.NoError(t, store.Put(ctx, newRecord(flowID, 10, 20)))

		got, err := store.Get(ctx, record.MessageRef{ChannelID: 10, MessageID: 20})
		require.NoError(t, err)
		assert.Equal(t, flowID, got.FlowID)
		assert.Equal(t, "hold_reroll", got.CommandID)
		assert.Equal(t, []byte("sidesOfDie: 6\n"), got.Config)
		assert.True(t, got.AtRest(), "a fresh record has no progress")
		assert.False(t, got.CreatedAt.IsZero())

		byFlow, err := store.ByFlowID(ctx, flowID)
		require.NoError(t, err)
		assert.Equal(t, got.Message, byFlow.Message)
	})

	t.Run("put replaces wholesale", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		flowID := uuid.New()
		rec := newRecord(flowID, 10, 20)
		require.NoError(t, store.Put(ctx, rec))

		rec.ProgressClassID = "HoldRerollProgress"
		rec.Progress = []byte("rerollCounter: 1\n")
		require.NoError(t, store.Put(ctx, rec))

		got, err := store.Get(ctx, rec.Message)
		require.NoError(t, err)
		assert.False(t, got.AtRest())
		assert.Equal(t, []byte("rerollCounter: 1\n"), got.Progress)
	})

	t.Run("clear progress keeps config", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rec := newRecord(uuid.New(), 10, 20)
		rec.ProgressClassID = "HoldRerollProgress"
		rec.Progress = []byte("rerollCounter: 1\n")
		require.NoError(t, store.Put(ctx, rec))

		require.NoError(t, store.ClearProgress(ctx, rec.Message))

		got, err := store.Get(ctx, rec.Message)
		require.NoError(t, err)
		assert.True(t, got.AtRest())
		assert.Nil(t, got.Progress)
		assert.Equal(t, []byte("sidesOfDie: 6\n"), got.Config)

		assert.ErrorIs(t, store.ClearProgress(ctx, record.MessageRef{ChannelID: 9, MessageID: 9}), record.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		rec := newRecord(uuid.New(), 10, 20)
		require.NoError(t, store.Put(ctx, rec))
		require.NoError(t, store.Delete(ctx, rec.Message))
		require.NoError(t, store.Delete(ctx, rec.Message))

		_, err := store.Get(ctx, rec.Message)
		assert.ErrorIs(t, err, record.ErrNotFound)
	})

	t.Run("message ids for flow", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		flowID := uuid.New()
		require.NoError(t, store.Put(ctx, newRecord(flowID, 10, 20)))
		require.NoError(t, store.Put(ctx, newRecord(flowID, 10, 21)))
		require.NoError(t, store.Put(ctx, newRecord(flowID, 11, 22)))
		require.NoError(t, store.Put(ctx, newRecord(uuid.New(), 10, 23)))

		ids, err := store.MessageIDsForFlow(ctx, flowID, 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{20, 21}, ids)

		ids, err = store.MessageIDsForFlow(ctx, uuid.New(), 10)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("closed store errors", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Close())

		_, err := store.Get(ctx, record.MessageRef{ChannelID: 1, MessageID: 1})
		assert.ErrorIs(t, err, record.ErrStoreClosed)
		assert.ErrorIs(t, store.Put(ctx, newRecord(uuid.New(), 1, 1)), record.ErrStoreClosed)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	storeContract(t, func(t *testing.T) record.Store {
		return record.NewMemoryStore()
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	storeContract(t, func(t *testing.T) record.Store {
		store, err := record.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return store
	})
}

func TestMemoryStore_CopiesPayloads(t *testing.T) {
	ctx := context.Background()
	store := record.NewMemoryStore()
	defer store.Close()

	config := []byte("sidesOfDie: 6\n")
	rec := &record.FlowRecord{
		FlowID:        uuid.New(),
		Message:       record.MessageRef{ChannelID: 1, MessageID: 2},
		CommandID:     "hold_reroll",
		ConfigClassID: "HoldRerollConfig",
		Config:        config,
	}
	require.NoError(t, store.Put(ctx, rec))

	config[0] = 'X'
	got, err := store.Get(ctx, rec.Message)
	require.NoError(t, err)
	assert.Equal(t, byte('s'), got.Config[0], "stored payload must not alias the caller's slice")
}

func TestByFlowID_ReturnsNewest(t *testing.T) {
	ctx := context.Background()
	store := record.NewMemoryStore()
	defer store.Close()

	flowID := uuid.New()
	old := &record.FlowRecord{
		FlowID:        flowID,
		Message:       record.MessageRef{ChannelID: 1, MessageID: 2},
		CommandID:     "hold_reroll",
		ConfigClassID: "HoldRerollConfig",
		Config:        []byte("a"),
		CreatedAt:     time.Now().UTC().Add(-time.Hour),
	}
	newer := &record.FlowRecord{
		FlowID:        flowID,
		Message:       record.MessageRef{ChannelID: 1, MessageID: 3},
		CommandID:     "hold_reroll",
		ConfigClassID: "HoldRerollConfig",
		Config:        []byte("b"),
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.Put(ctx, old))
	require.NoError(t, store.Put(ctx, newer))

	got, err := store.ByFlowID(ctx, flowID)
	require.NoError(t, err)
	assert.Equal(t, newer.Message, got.Message)
}
