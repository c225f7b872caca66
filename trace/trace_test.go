package trace

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")

	id, ok := RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-123", id)
}

func TestRequestIDFromContextMissing(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = RequestIDFromContext(WithRequestID(context.Background(), ""))
	assert.False(t, ok, "empty ids are treated as absent")
}

func TestEnsureRequestID(t *testing.T) {
	t.Run("keeps existing id", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "existing")
		assert.Equal(t, "existing", EnsureRequestID(ctx))
	})

	t.Run("generates uuid when missing", func(t *testing.T) {
		id := EnsureRequestID(context.Background())
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})
}
