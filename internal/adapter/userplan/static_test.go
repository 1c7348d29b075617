package userplan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver("u1:premium, u2:free ,u3:enterprise", "premium,enterprise")

	tests := []struct {
		ownerID string
		want    bool
	}{
		{"u1", true},
		{"u2", false},
		{"u3", true},
		{"unknown", false},
		{"", false},
	}

	for _, tt := range tests {
		got, err := r.Privileged(context.Background(), tt.ownerID)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "owner %q", tt.ownerID)
	}
}

func TestStaticResolver_MalformedAssignmentsIgnored(t *testing.T) {
	r := NewStaticResolver("justtoken,,u1:premium", "premium")

	got, err := r.Privileged(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = r.Privileged(context.Background(), "justtoken")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestStaticResolver_Empty(t *testing.T) {
	r := NewStaticResolver("", "")

	got, err := r.Privileged(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, got)
}
