package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestScopedValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, " req-1 ")
	ctx = WithActor(ctx, "user", "office@example.com")
	ctx = WithClient(ctx, Client{IPAddress: "10.0.0.2", UserAgent: "curl"})

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "user", actorType)
	assert.Equal(t, "office@example.com", actorID)
	assert.Equal(t, "10.0.0.2", ClientFromContext(ctx).IPAddress)
}

func TestWithActorIgnoresEmptyType(t *testing.T) {
	ctx := WithActor(context.Background(), "", "nobody")
	actorType, _ := ActorFromContext(ctx)
	assert.Empty(t, actorType)
}
