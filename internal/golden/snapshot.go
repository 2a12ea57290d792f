package golden

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/san-kum/phytrace/internal/evidence"
	"github.com/san-kum/phytrace/internal/trace"
)

// SnapshotVersion is bumped when the snapshot format changes.
const SnapshotVersion = 1

var (
	ErrNotFound        = errors.New("golden: snapshot not found")
	ErrInvalidName     = errors.New("golden: invalid snapshot name")
	ErrVersionMismatch = errors.New("golden: unsupported snapshot version")
)

// Snapshot is the minimal comparable form of a run. Y is state-major.
type Snapshot struct {
	Version      int                `json:"version"`
	Name         string             `json:"name"`
	T            []float64          `json:"t"`
	Y            [][]float64        `json:"y"`
	NFev         int                `json:"nfev"`
	Success      bool               `json:"success"`
	FinalTime    float64            `json:"final_time"`
	ChecksPassed bool               `json:"checks_passed"`
	Params       map[string]float64 `json:"params"`
}

// snapshotJSON is the stored form. Finite values encode as plain numbers;
// NaN and infinities encode as strings so a diverged run still round-trips.
type snapshotJSON struct {
	Version      int                        `json:"version"`
	Name         string                     `json:"name"`
	T            evidence.Vector            `json:"t"`
	Y            []evidence.Vector          `json:"y"`
	NFev         int                        `json:"nfev"`
	Success      bool                       `json:"success"`
	FinalTime    evidence.Number            `json:"final_time"`
	ChecksPassed bool                       `json:"checks_passed"`
	Params       map[string]evidence.Number `json:"params"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	w := snapshotJSON{
		Version:      s.Version,
		Name:         s.Name,
		T:            evidence.VectorOf(s.T),
		NFev:         s.NFev,
		Success:      s.Success,
		FinalTime:    evidence.Number(s.FinalTime),
		ChecksPassed: s.ChecksPassed,
		Params:       evidence.ParamsOf(s.Params),
	}
	if s.Y != nil {
		w.Y = make([]evidence.Vector, len(s.Y))
		for i, row := range s.Y {
			w.Y[i] = evidence.VectorOf(row)
		}
	}
	return json.Marshal(w)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w snapshotJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Snapshot{
		Version:      w.Version,
		Name:         w.Name,
		T:            w.T.Floats(),
		NFev:         w.NFev,
		Success:      w.Success,
		FinalTime:    float64(w.FinalTime),
		ChecksPassed: w.ChecksPassed,
		Params:       make(map[string]float64, len(w.Params)),
	}
	if w.Y != nil {
		s.Y = make([][]float64, len(w.Y))
		for i, row := range w.Y {
			s.Y[i] = row.Floats()
		}
	}
	for k, v := range w.Params {
		s.Params[k] = float64(v)
	}
	return nil
}

// FromResult snapshots a run result.
func FromResult(name string, res *trace.Result) Snapshot {
	s := Snapshot{
		Version:      SnapshotVersion,
		Name:         name,
		T:            append([]float64(nil), res.T...),
		Y:            make([][]float64, len(res.Y)),
		NFev:         res.NFev,
		Success:      res.Success,
		FinalTime:    res.FinalTime(),
		ChecksPassed: res.ChecksPassed,
		Params:       make(map[string]float64, len(res.Params)),
	}
	for i, row := range res.Y {
		s.Y[i] = append([]float64(nil), row...)
	}
	for k, v := range res.Params {
		s.Params[k] = v
	}
	return s
}

// FromPack rebuilds a snapshot from an evidence pack on disk.
func FromPack(name, dir string) (Snapshot, error) {
	m, err := evidence.LoadManifest(dir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load manifest: %w", err)
	}
	tr, err := evidence.LoadTrajectory(dir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load trajectory: %w", err)
	}
	s := Snapshot{
		Version:      SnapshotVersion,
		Name:         name,
		T:            tr.T,
		Y:            tr.Y,
		NFev:         m.SolverStats.NFev,
		Success:      m.SolverStats.Success,
		FinalTime:    float64(m.SolverStats.FinalTime),
		ChecksPassed: m.Invariants.ChecksPassed,
		Params:       make(map[string]float64, len(m.Simulation.Params)),
	}
	for k, v := range m.Simulation.Params {
		s.Params[k] = float64(v)
	}
	return s, nil
}

func (s Snapshot) validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrVersionMismatch, s.Version)
	}
	for i, row := range s.Y {
		if len(row) != len(s.T) {
			return fmt.Errorf("golden: state_%d has %d samples for %d times", i, len(row), len(s.T))
		}
	}
	return nil
}
