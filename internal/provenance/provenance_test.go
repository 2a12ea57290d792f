package provenance

import (
	"context"
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_JSON(t *testing.T) {
	captured := Captured(System{OS: "linux", NumCPU: 4})
	data, err := json.Marshal(captured)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"captured","value":{"os":"linux","arch":"","hostname":"","num_cpu":4}}`, string(data))

	var back Field[System]
	require.NoError(t, json.Unmarshal(data, &back))
	v, ok := back.Get()
	assert.True(t, ok)
	assert.Equal(t, 4, v.NumCPU)

	missing := Unavailable[Git]("git executable not found")
	data, err = json.Marshal(missing)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"unavailable","reason":"git executable not found"}`, string(data))

	var gitBack Field[Git]
	require.NoError(t, json.Unmarshal(data, &gitBack))
	assert.False(t, gitBack.IsCaptured())
	assert.Equal(t, "git executable not found", gitBack.Reason())
	assert.Equal(t, "fallback", Unavailable[string]("x").Or("fallback"))
}

func TestField_UnknownStatus(t *testing.T) {
	var f Field[string]
	assert.Error(t, json.Unmarshal([]byte(`{"status":"maybe"}`), &f))
}

func TestLocal_CaptureNeverFails(t *testing.T) {
	env := Local{Dir: t.TempDir()}.Capture(context.Background())

	v, ok := env.GoVersion.Get()
	require.True(t, ok)
	assert.Equal(t, runtime.Version(), v)

	if sys, ok := env.System.Get(); ok {
		assert.Equal(t, runtime.GOOS, sys.OS)
	}
	// A fresh temp dir is never a repository.
	assert.False(t, env.Git.IsCaptured())
	assert.NotEmpty(t, env.Git.Reason())
}

func TestStatic(t *testing.T) {
	env := Environment{GoVersion: Captured("go1.24")}
	got := Static(env).Capture(context.Background())
	assert.Equal(t, "go1.24", got.GoVersion.Or(""))
}

func TestContract(t *testing.T) {
	c := DefaultContract()
	md := c.Markdown()
	assert.True(t, strings.HasPrefix(md, "# Reproducibility Contract"))
	assert.Contains(t, md, "- **Go Version**:")
	assert.Contains(t, md, "## Known Limitations")

	snap := c.Snapshot()
	assert.Len(t, snap.Captured, len(c.Captured))
	assert.Equal(t, c.Limitations, snap.Limitations)
	assert.NotEmpty(t, c.Summary())
}
