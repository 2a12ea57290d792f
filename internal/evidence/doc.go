// Package evidence writes and reads evidence packs: the fixed directory
// layout that documents how one run was produced.
//
// A pack contains manifest.json, run_log.txt, invariants.json, report.md,
// data/trajectory.csv, best-effort plots under plots/ and an empty checks/
// directory. The manifest is always written last, so a readable manifest
// implies every file it lists is already on disk.
package evidence
