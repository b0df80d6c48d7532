package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAppendIsIdempotentByFingerprint(t *testing.T) {
	m, err := NewMemory(10)
	require.NoError(t, err)
	ctx := context.Background()

	rec := Record{Kind: KindHealth, UserID: "U1", Response: "great", Fingerprint: "fp1"}
	require.NoError(t, m.Append(ctx, rec))
	require.NoError(t, m.Append(ctx, rec))
	require.NoError(t, m.Append(ctx, Record{Kind: KindBlocker, UserID: "U1", Fingerprint: "fp2"}))

	health, err := m.Records(ctx, KindHealth)
	require.NoError(t, err)
	require.Len(t, health, 1)
	assert.NotEmpty(t, health[0].ID)
	assert.Equal(t, 2, m.Len())
}

func TestMemoryIsBounded(t *testing.T) {
	m, err := NewMemory(3)
	require.NoError(t, err)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Append(ctx, Record{Kind: KindStandup, Response: fmt.Sprint(i), Fingerprint: fmt.Sprint(i)}))
	}

	rows, err := m.Records(ctx, KindStandup)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2", rows[0].Response)
	assert.Equal(t, "4", rows[2].Response)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Blocker")
	require.NoError(t, err)
	assert.Equal(t, KindBlocker, k)

	_, err = ParseKind("mood")
	assert.Error(t, err)
}

func TestCellsFollowKindColumns(t *testing.T) {
	cells := Record{Kind: KindBlocker, UserName: "Ana", Urgency: "high", Today: "ignored"}.Cells()
	assert.Equal(t, "high", cells[ColUrgency])
	_, hasToday := cells[ColToday]
	assert.False(t, hasToday)
}
