package reqctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithAndFrom(t *testing.T) {
	ctx := With(context.Background(), Identity{
		TenantCode: "hoadstaging",
		UserID:     "user123",
		SessionID:  "sess-1",
	})

	id, ok := From(ctx)
	assert.True(t, ok)
	assert.Equal(t, "hoadstaging", id.TenantCode)
	assert.Equal(t, "user123", id.UserID)
	assert.Equal(t, "sess-1", id.SessionID)
}

func TestFrom_Missing(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)

	id := FromOrZero(context.Background())
	assert.Empty(t, id.UserID)
}

func TestIsolationBetweenContexts(t *testing.T) {
	base := context.Background()
	a := With(base, Identity{UserID: "a", SessionID: "sa"})
	b := With(base, Identity{UserID: "b", SessionID: "sb"})

	idA := FromOrZero(a)
	idB := FromOrZero(b)
	assert.Equal(t, "a", idA.UserID)
	assert.Equal(t, "b", idB.UserID)
	assert.NotEqual(t, idA.SessionID, idB.SessionID)
}
