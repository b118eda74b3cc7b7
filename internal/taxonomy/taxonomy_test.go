// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	topics, err := Topics()
	require.NoError(t, err)
	require.Len(t, topics, 17)

	assert.Equal(t, "No Poverty", topics[0].Name)
	assert.Equal(t, 13, topics[12].ID)
	assert.Equal(t, "Climate Action", topics[12].Name)
	for _, topic := range topics {
		assert.NotEmpty(t, topic.Description, "topic %d", topic.ID)
		assert.Regexp(t, `^#[0-9A-F]{6}$`, topic.Color, "topic %d", topic.ID)
	}
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"13", []int{13}, false},
		{"13, 3|6", []int{3, 6, 13}, false},
		{"3,3,,3", []int{3}, false},
		{"0", nil, true},
		{"18", nil, true},
		{"climate", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIDs(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize([]int{13, 1, 13})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 13}, got)

	got, err = Normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = Normalize([]int{42})
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "SDG 3, 13", Label([]int{3, 13}))
	assert.Equal(t, "SDG 6", Label([]int{6}))
}
