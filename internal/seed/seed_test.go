package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Deterministic(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Rand().Float64(), b.Rand().Float64())
		assert.Equal(t, a.RandV2().Uint64(), b.RandV2().Uint64())
	}

	c := New(43)
	assert.NotEqual(t, New(42).Rand().Int63(), c.Rand().Int63())
}

func TestStatus(t *testing.T) {
	c := New(7)
	assert.True(t, c.Status(MathRand).Seeded)
	assert.True(t, c.Status(MathRandV2).Seeded)

	crypto := c.Status(CryptoRand)
	assert.False(t, crypto.Seeded)
	assert.NotEmpty(t, crypto.Reason)
}

func TestReport(t *testing.T) {
	r := New(7).Report()
	require.NotNil(t, r.Seed)
	assert.Equal(t, int64(7), *r.Seed)
	assert.Equal(t, map[string]bool{"math/rand": true, "math/rand/v2": true, "crypto/rand": false}, r.Sources)
	assert.Contains(t, r.Reasons, "crypto/rand")
	assert.NotContains(t, r.Reasons, "math/rand")
}

func TestReport_NilContext(t *testing.T) {
	var c *Context
	r := c.Report()
	assert.Nil(t, r.Seed)
	for _, src := range Sources() {
		assert.False(t, r.Sources[string(src)])
		assert.Equal(t, reasonNoSeed, r.Reasons[string(src)])
	}
}
