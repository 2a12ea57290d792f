// Package golden stores reference snapshots of runs and compares new runs
// against them with numeric tolerances.
//
// Snapshots are only written by explicit calls: Store.Save, Verify with
// AllowCreate, or Verify while PHYTRACE_UPDATE_GOLDEN is set.
package golden
