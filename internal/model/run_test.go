package model

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunParams_ResultName(t *testing.T) {
	t.Parallel()

	p := RunParams{
		Combination:        "example",
		BufferSize:         "50",
		Weighting:          WeightingIQR,
		StatisticThreshold: 100,
		CorrThreshold:      1,
		StatisticType:      "iqr_norm",
	}
	assert.Equal(t, "example_50m_w1_100_1_iqr_norm_False", p.ResultName())

	p.CorrThreshold = 0.75
	p.CrossValidation = true
	assert.Equal(t, "example_50m_w1_100_0.75_iqr_norm_True", p.ResultName())
}

func TestParseWeighting(t *testing.T) {
	t.Parallel()

	for _, w := range AllWeightings() {
		got, err := ParseWeighting(string(w))
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}

	_, err := ParseWeighting("w9")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestInputError(t *testing.T) {
	t.Parallel()

	err := eris.Wrap(&InputError{Variable: "t_slope", Buffer: 3, Err: ErrEmptyBuffer}, "sampler: sample")
	assert.True(t, IsInputError(err))
	assert.True(t, errors.Is(err, ErrEmptyBuffer))
	assert.Contains(t, err.Error(), "t_slope")
	assert.Contains(t, err.Error(), "buffer 3")

	plain := NewInputError("c_coast", ErrDegenerate)
	assert.Equal(t, -1, plain.Buffer)
	assert.NotContains(t, plain.Error(), "buffer")
	assert.False(t, IsInputError(errors.New("other")))
}

func TestBufferSet_Subset(t *testing.T) {
	t.Parallel()

	set := BufferSet{CRS: "WKT", Buffers: []Buffer{{Index: 0}, {Index: 1}, {Index: 2}}}
	sub := set.Subset([]int{2, 0})
	assert.Equal(t, "WKT", sub.CRS)
	require.Len(t, sub.Buffers, 2)
	assert.Equal(t, 2, sub.Buffers[0].Index)
	assert.Equal(t, 0, sub.Buffers[1].Index)
}
