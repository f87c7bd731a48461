package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartGenerations_FillSkippedAfterWriteBegins(t *testing.T) {
	var gens cartGenerations

	gen := gens.current(7)
	gens.bump(7)

	called := false
	assert.False(t, gens.fill(7, gen, func() { called = true }))
	assert.False(t, called)
}

func TestCartGenerations_FillSkippedAfterInvalidate(t *testing.T) {
	var gens cartGenerations

	gen := gens.current(7)
	dropped := false
	gens.invalidate(7, func() { dropped = true })
	assert.True(t, dropped)

	assert.False(t, gens.fill(7, gen, func() { t.Fatal("stale fill ran") }))
}

func TestCartGenerations_FillRunsWhenUnchanged(t *testing.T) {
	var gens cartGenerations
	gens.bump(3)

	gen := gens.current(3)
	called := false
	assert.True(t, gens.fill(3, gen, func() { called = true }))
	assert.True(t, called)
}
