// Package provenance records where and how a run was produced. Every
// capture is best effort: failures become unavailable fields, never errors.
package provenance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// System describes the host.
type System struct {
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	Hostname string `json:"hostname"`
	NumCPU   int    `json:"num_cpu"`
}

// Git is the repository state of the working directory.
type Git struct {
	Commit string `json:"commit"`
	Branch string `json:"branch"`
	Dirty  bool   `json:"dirty"`
}

// Environment is the captured execution environment of a run.
type Environment struct {
	GoVersion Field[string]            `json:"go_version"`
	Module    Field[string]            `json:"module"`
	Packages  Field[map[string]string] `json:"packages"`
	System    Field[System]            `json:"system"`
	Git       Field[Git]               `json:"git"`
}

// Capturer gathers the environment. Implementations must not fail.
type Capturer interface {
	Capture(ctx context.Context) Environment
}

// CapturerFunc adapts a function to Capturer.
type CapturerFunc func(ctx context.Context) Environment

func (f CapturerFunc) Capture(ctx context.Context) Environment { return f(ctx) }

// Static returns a capturer that always reports env.
func Static(env Environment) Capturer {
	return CapturerFunc(func(context.Context) Environment { return env })
}

// KeyPackages are the dependency versions reported by default.
var KeyPackages = []string{
	"github.com/dgraph-io/badger/v4",
	"github.com/google/uuid",
	"github.com/spf13/cobra",
	"go.opentelemetry.io/otel",
	"gopkg.in/yaml.v3",
}

// Local captures the environment of the current process.
type Local struct {
	// Dir is where git is queried. Empty means the working directory.
	Dir string
	// Packages overrides KeyPackages.
	Packages []string
	// GitTimeout bounds every git invocation.
	GitTimeout time.Duration
}

func (l Local) Capture(ctx context.Context) Environment {
	env := Environment{
		GoVersion: Captured(runtime.Version()),
		System:    captureSystem(),
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		env.Module = Unavailable[string]("build info not embedded in binary")
		env.Packages = Unavailable[map[string]string]("build info not embedded in binary")
	} else {
		env.Module = Captured(info.Main.Path + "@" + info.Main.Version)
		env.Packages = Captured(packageVersions(info, l.packages()))
	}

	env.Git = l.captureGit(ctx)
	return env
}

func (l Local) packages() []string {
	if len(l.Packages) > 0 {
		return l.Packages
	}
	return KeyPackages
}

func packageVersions(info *debug.BuildInfo, wanted []string) map[string]string {
	out := make(map[string]string, len(wanted))
	deps := make(map[string]string, len(info.Deps))
	for _, d := range info.Deps {
		v := d.Version
		if d.Replace != nil {
			v = d.Replace.Version
		}
		deps[d.Path] = v
	}
	for _, p := range wanted {
		if v, ok := deps[p]; ok {
			out[p] = v
		} else {
			out[p] = "not linked"
		}
	}
	return out
}

func captureSystem() Field[System] {
	host, err := os.Hostname()
	if err != nil {
		return Unavailablef[System]("hostname: %v", err)
	}
	return Captured(System{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		Hostname: host,
		NumCPU:   runtime.NumCPU(),
	})
}

var errNotRepo = errors.New("not a git repository")

func (l Local) captureGit(ctx context.Context) Field[Git] {
	if _, err := exec.LookPath("git"); err != nil {
		return Unavailable[Git]("git executable not found")
	}
	timeout := l.GitTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	commit, err := l.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return Unavailable[Git](err.Error())
	}
	branch, err := l.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return Unavailable[Git](err.Error())
	}
	status, err := l.git(ctx, "status", "--porcelain")
	if err != nil {
		return Unavailable[Git](err.Error())
	}
	return Captured(Git{Commit: commit, Branch: branch, Dirty: status != ""})
}

func (l Local) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = l.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if strings.Contains(stderr.String(), "not a git repository") {
			return "", errNotRepo
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}
