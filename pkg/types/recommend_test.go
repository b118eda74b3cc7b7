// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewActionTransitions(t *testing.T) {
	assert.True(t, ViewViewed.CanTransitionTo(ViewEmailSent))
	assert.False(t, ViewEmailSent.CanTransitionTo(ViewViewed))
	assert.False(t, ViewEmailSent.CanTransitionTo(ViewEmailSent))
	assert.False(t, ViewViewed.CanTransitionTo(ViewViewed))
}
