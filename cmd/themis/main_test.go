package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeights(t *testing.T) {
	weights, err := parseWeights("3, 5,,7")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 5, 7}, weights)

	_, err = parseWeights("")
	assert.Error(t, err)
	_, err = parseWeights("3,x")
	assert.Error(t, err)
	_, err = parseWeights("-1")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	err := run(context.Background(), options{
		users:    3,
		weights:  "3,5",
		dir:      t.TempDir(),
		workers:  2,
		maxValue: 100,
	}, zerolog.Nop())
	require.NoError(t, err)
}
