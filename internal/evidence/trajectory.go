package evidence

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Trajectory is a run's time series. Y is state-major: Y[i][j] is state
// dimension i at time T[j].
type Trajectory struct {
	T []float64
	Y [][]float64
}

func (tr Trajectory) Dim() int { return len(tr.Y) }
func (tr Trajectory) Len() int { return len(tr.T) }

// Check reports shape problems that keep the trajectory out of a pack.
func (tr Trajectory) Check() error {
	for i, row := range tr.Y {
		if len(row) != len(tr.T) {
			return fmt.Errorf("%w: state_%d has %d samples for %d times",
				ErrMalformedTrajectory, i, len(row), len(tr.T))
		}
	}
	return nil
}

// Column returns dimension i, or nil when out of range.
func (tr Trajectory) Column(i int) []float64 {
	if i < 0 || i >= len(tr.Y) {
		return nil
	}
	return tr.Y[i]
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// EncodeCSV writes the header time,state_0..state_{n-1} followed by one
// row per time point.
func (tr Trajectory) EncodeCSV(w io.Writer) error {
	if err := tr.Check(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)

	header := make([]string, 0, tr.Dim()+1)
	header = append(header, "time")
	for i := range tr.Y {
		header = append(header, fmt.Sprintf("state_%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, tr.Dim()+1)
	for j, t := range tr.T {
		row[0] = formatFloat(t)
		for i := range tr.Y {
			row[i+1] = formatFloat(tr.Y[i][j])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeCSV parses the trajectory format written by EncodeCSV.
func DecodeCSV(r io.Reader) (Trajectory, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return Trajectory{}, fmt.Errorf("%w: %v", ErrMalformedTrajectory, err)
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != "time" {
		return Trajectory{}, fmt.Errorf("%w: missing time header", ErrMalformedTrajectory)
	}
	header := records[0]
	for i, name := range header[1:] {
		if name != fmt.Sprintf("state_%d", i) {
			return Trajectory{}, fmt.Errorf("%w: unexpected column %q", ErrMalformedTrajectory, name)
		}
	}

	n := len(records) - 1
	tr := Trajectory{T: make([]float64, n), Y: make([][]float64, len(header)-1)}
	for i := range tr.Y {
		tr.Y[i] = make([]float64, n)
	}
	for j, rec := range records[1:] {
		for c, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Trajectory{}, fmt.Errorf("%w: line %d: %v", ErrMalformedTrajectory, j+2, err)
			}
			if c == 0 {
				tr.T[j] = v
			} else {
				tr.Y[c-1][j] = v
			}
		}
	}
	return tr, nil
}

// LoadTrajectory reads data/trajectory.csv from a pack.
func LoadTrajectory(dir string) (Trajectory, error) {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(TrajectoryFile)))
	if err != nil {
		return Trajectory{}, err
	}
	return DecodeCSV(bytes.NewReader(data))
}
