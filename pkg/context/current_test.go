package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentRoundTrip(t *testing.T) {
	current := NewCurrent()
	current.Set("user_agent", "curl/8.0")
	current.Set("attempt", 2)

	ctx := WithCurrent(context.Background(), current)

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, current, got)

	ua, ok := got.GetString("user_agent")
	assert.True(t, ok)
	assert.Equal(t, "curl/8.0", ua)

	_, ok = got.GetString("attempt")
	assert.False(t, ok, "non-string values are not returned as strings")

}

func TestGetCurrentOutsideRequest(t *testing.T) {
	current := GetCurrent(context.Background())

	assert.NotNil(t, current)
	_, ok := current.GetString("request_id")
	assert.False(t, ok)
}
