package golden

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/phytrace/internal/trace"
)

// UpdateEnv, when set to anything but "", "0" or "false", makes Verify
// overwrite stored snapshots with the current run.
const UpdateEnv = "PHYTRACE_UPDATE_GOLDEN"

// RunFunc produces the run under test.
type RunFunc func(ctx context.Context) (*trace.Result, error)

type VerifyOptions struct {
	// AllowCreate stores the run as the reference when none exists.
	AllowCreate bool
	Compare     []Option
}

// Verification is the outcome of a successful Verify.
type Verification struct {
	Name    string
	Stored  bool
	Report  Report
	Current Snapshot
}

// MismatchError is returned when a run disagrees with its reference.
type MismatchError struct {
	Name   string
	Report Report
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("golden %s mismatch: %s", e.Name, e.Report)
}

func updateRequested() bool {
	v := strings.TrimSpace(os.Getenv(UpdateEnv))
	return v != "" && v != "0" && !strings.EqualFold(v, "false")
}

// StoreResult snapshots res and saves it under name.
func StoreResult(ctx context.Context, store Store, res *trace.Result, name string) error {
	if res == nil {
		return errors.New("golden: nil result")
	}
	return store.Save(ctx, name, FromResult(name, res))
}

func LoadSnapshot(ctx context.Context, store Store, name string) (Snapshot, error) {
	return store.Load(ctx, name)
}

// Verify runs the simulation and compares it against the stored snapshot.
func Verify(ctx context.Context, store Store, name string, run RunFunc, opts VerifyOptions) (*Verification, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	res, err := run(ctx)
	if err != nil {
		return nil, fmt.Errorf("golden: run %s: %w", name, err)
	}
	if res == nil {
		return nil, fmt.Errorf("golden: run %s returned no result", name)
	}
	current := FromResult(name, res)
	v := &Verification{Name: name, Current: current}

	if updateRequested() {
		if err := store.Save(ctx, name, current); err != nil {
			return nil, err
		}
		v.Stored = true
		v.Report = Compare(current, current, opts.Compare...)
		return v, nil
	}

	ref, err := store.Load(ctx, name)
	if errors.Is(err, ErrNotFound) && opts.AllowCreate {
		if err := store.Save(ctx, name, current); err != nil {
			return nil, err
		}
		v.Stored = true
		v.Report = Compare(current, current, opts.Compare...)
		return v, nil
	}
	if err != nil {
		return nil, err
	}

	v.Report = Compare(current, ref, opts.Compare...)
	if !v.Report.Match() {
		return v, &MismatchError{Name: name, Report: v.Report}
	}
	return v, nil
}

// Require is Verify for tests: any error fails t immediately.
func Require(t testing.TB, store Store, name string, run RunFunc, opts VerifyOptions) *Verification {
	t.Helper()
	v, err := Verify(context.Background(), store, name, run, opts)
	require.NoError(t, err, "golden %s", name)
	return v
}
