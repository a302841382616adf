package measure

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpimeasure/pkg/comm"
	"mpimeasure/pkg/concurrency"
)

func TestAccumulator_Update(t *testing.T) {
	acc := NewAccumulator([]string{"a", "b"})

	triples := []StatTriple{
		{2, 3, 7},
		{1.5, 4, 5},
		{4, 4.5, 9},
	}
	for _, tr := range triples {
		require.NoError(t, acc.Update("a", tr))
	}

	got, err := acc.Finalize("a")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, StatTriple{1.5, 3, 5}, got.Min)
	assert.Equal(t, StatTriple{4, 4.5, 9}, got.Max)
	assert.Equal(t, StatTriple{7.5, 11.5, 21}, got.Sum)
	assert.InDelta(t, 2.5, got.Avg.Min, 1e-12)
	assert.InDelta(t, 11.5/3, got.Avg.Avg, 1e-12)
	assert.InDelta(t, 7, got.Avg.Max, 1e-12)
}

// Values above one must not be bounded by the initial minimum.
func TestAccumulator_SentinelsBoundAnyMagnitude(t *testing.T) {
	acc := NewAccumulator([]string{"a"})
	require.NoError(t, acc.Update("a", StatTriple{120, 130, 140}))
	require.NoError(t, acc.Update("a", StatTriple{-5, -4, -3}))

	got, err := acc.Finalize("a")
	require.NoError(t, err)
	assert.Equal(t, StatTriple{-5, -4, -3}, got.Min)
	assert.Equal(t, StatTriple{120, 130, 140}, got.Max)
}

func TestAccumulator_FinalizeIsIdempotent(t *testing.T) {
	acc := NewAccumulator([]string{"a"})
	require.NoError(t, acc.Update("a", StatTriple{1, 2, 3}))

	first, err := acc.Finalize("a")
	require.NoError(t, err)
	second, err := acc.Finalize("a")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAccumulator_Errors(t *testing.T) {
	acc := NewAccumulator([]string{"a"})

	assert.True(t, errors.Is(acc.Update("x", StatTriple{}), ErrUnknownColumn))

	_, err := acc.Finalize("x")
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	got, err := acc.Finalize("a")
	assert.True(t, errors.Is(err, ErrNoObservations))
	assert.Equal(t, 0, got.Count)
	assert.False(t, math.IsNaN(got.Avg.Avg))
}

func TestReduce(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for _, size := range []int{1, 2, 5, 8} {
		values := make([]float64, size)
		for i := range values {
			values[i] = rnd.Float64()*100 - 20
		}
		wantMin, wantMax, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, v := range values {
			wantMin = math.Min(wantMin, v)
			wantMax = math.Max(wantMax, v)
			sum += v
		}

		ranks, err := comm.NewLocal(size)
		require.NoError(t, err)
		triples, err := concurrency.Map(ranks, func(info comm.Info) (StatTriple, error) {
			return Reduce(info, values[info.Rank])
		})
		require.NoError(t, err)

		root := triples[0]
		assert.Equal(t, wantMin, root.Min)
		assert.Equal(t, wantMax, root.Max)
		assert.InDelta(t, sum/float64(size), root.Avg, 1e-9)
		assert.LessOrEqual(t, root.Min, root.Avg+1e-9)
		assert.LessOrEqual(t, root.Avg, root.Max+1e-9)
		for _, other := range triples[1:] {
			assert.Equal(t, StatTriple{}, other)
		}
	}
}

func TestReduce_InjectedRoot(t *testing.T) {
	ranks, err := comm.NewLocal(3)
	require.NoError(t, err)

	triples, err := concurrency.Map(ranks, func(info comm.Info) (StatTriple, error) {
		info, err := info.WithRoot(2)
		if err != nil {
			return StatTriple{}, err
		}
		return Reduce(info, float64(info.Rank))
	})
	require.NoError(t, err)
	assert.Equal(t, StatTriple{0, 1, 2}, triples[2])
	assert.Equal(t, StatTriple{}, triples[0])
}
