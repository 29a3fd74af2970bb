package project

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/bakery/internal/model"
)

func TestRandomJob_Defaults(t *testing.T) {
	params := DefaultRandomParams()
	job, err := RandomJob(params, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, job.Width, model.Precise(2))
	assert.LessOrEqual(t, job.Width, model.Precise(5))
	assert.GreaterOrEqual(t, job.Height, model.Precise(2))
	assert.LessOrEqual(t, job.Height, model.Precise(5))

	// Five sheets: the shapes cover at least four containers.
	assert.GreaterOrEqual(t, job.Area(), 4*job.EmptyContainer().Area())

	u := model.ReduceToUnique(job.Shapes)
	assert.GreaterOrEqual(t, len(u.Names), params.MinShapes)
	assert.LessOrEqual(t, len(u.Names), params.MaxShapes)
	for i, s := range u.Shapes {
		assert.True(t, s.IsClosed(), u.Names[i])
		assert.True(t, s.IsSimple(), u.Names[i])
		amount := u.Amounts[u.Names[i]]
		assert.GreaterOrEqual(t, amount, params.MinAmount)
		assert.LessOrEqual(t, amount, params.MaxAmount)
	}
}

func TestRandomJob_Deterministic(t *testing.T) {
	a, err := RandomJob(DefaultRandomParams(), rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	b, err := RandomJob(DefaultRandomParams(), rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)

	require.Len(t, b.Shapes, len(a.Shapes))
	assert.Equal(t, a.Width, b.Width)
	for i := range a.Shapes {
		assert.Equal(t, a.Shapes[i].Points(), b.Shapes[i].Points())
	}
}

func TestRandomParams_Validate(t *testing.T) {
	p := DefaultRandomParams()
	p.MinPoints = 2
	assert.ErrorIs(t, p.Validate(), ErrInvalidRandomParams)

	p = DefaultRandomParams()
	p.MinSheets, p.MaxSheets = 3, 2
	_, err := RandomJob(p, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, ErrInvalidRandomParams)
}
