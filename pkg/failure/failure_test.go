package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("boom"), 0},
		{"transport", New(Transport, "https://a.test", errors.New("dial")), Transport},
		{"status", Status("https://a.test", 503), UpstreamStatus},
		{"wrapped parse", fmt.Errorf("resolve: %w", New(Parse, "https://a.test", errors.New("eof"))), Parse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorUnwrapKeepsContextCancellation(t *testing.T) {
	err := New(Transport, "https://a.test", fmt.Errorf("do request: %w", context.Canceled))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, Is(err, Transport))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "upstream_status: HTTP 404 for https://a.test/x", Status("https://a.test/x", 404).Error())
	assert.Equal(t, 404, StatusOf(Status("https://a.test/x", 404)))
	assert.Contains(t, New(Parse, "https://a.test", errors.New("bad json")).Error(), "bad json")
}
