package evidence

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/phytrace/internal/plot"
)

// Pack is everything a writer needs to render one run.
type Pack struct {
	Manifest   Manifest
	Trajectory Trajectory
	RunLog     []byte
}

type Option func(*Writer)

// WithRenderer sets the plot renderer. A nil renderer disables plots.
func WithRenderer(r plot.Renderer) Option {
	return func(w *Writer) { w.renderer = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// Writer renders packs into directories.
type Writer struct {
	renderer plot.Renderer
	logger   *slog.Logger
	now      func() time.Time
}

func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		renderer: plot.NewPNG(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// packWriter tracks the files of one pack in write order.
type packWriter struct {
	dir   string
	files []string
}

func (p *packWriter) write(rel string, data []byte) error {
	path := filepath.Join(p.dir, filepath.FromSlash(rel))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if rel != ManifestFile {
		p.files = append(p.files, rel)
	}
	return nil
}

// Write renders pack into dir and returns the manifest as written. It fails
// only on filesystem errors; data that cannot be rendered is left out and
// noted in the manifest. A missing run id or timestamp is filled in.
func (w *Writer) Write(dir string, pack Pack) (*Manifest, error) {
	m := pack.Manifest
	m.FormatVersion = FormatVersion
	if m.RunID == "" {
		m.RunID = uuid.NewString()
	}
	if m.Timestamp == "" {
		m.Timestamp = w.now().UTC().Format(time.RFC3339Nano)
	}
	m.Notes = append([]string(nil), m.Notes...)

	for _, sub := range append([]string{""}, RequiredDirs...) {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, &WriteError{Path: path, Err: err}
		}
	}
	pw := &packWriter{dir: dir}
	log := w.logger.With("evidence_dir", dir)

	if err := pw.write(RunLogFile, pack.RunLog); err != nil {
		return nil, err
	}

	tr := pack.Trajectory
	var csvBuf bytes.Buffer
	if err := tr.EncodeCSV(&csvBuf); err != nil {
		log.Warn("trajectory omitted from evidence pack", "error", err)
		m.Notes = append(m.Notes, "trajectory omitted: "+err.Error())
	} else if err := pw.write(TrajectoryFile, csvBuf.Bytes()); err != nil {
		return nil, err
	}

	if err := w.writePlots(pw, tr, &m, log); err != nil {
		return nil, err
	}

	inv, err := marshal(m.Invariants)
	if err != nil {
		return nil, err
	}
	if err := pw.write(InvariantsFile, inv); err != nil {
		return nil, err
	}

	m.Files = append(append([]string(nil), pw.files...), ReportFile)
	if err := pw.write(ReportFile, []byte(Report(&m, tr))); err != nil {
		return nil, err
	}

	data, err := marshal(m)
	if err != nil {
		return nil, err
	}
	if err := pw.write(ManifestFile, data); err != nil {
		return nil, err
	}
	log.Info("evidence pack written", "files", len(m.Files)+1)
	return &m, nil
}

func (w *Writer) writePlots(pw *packWriter, tr Trajectory, m *Manifest, log *slog.Logger) error {
	if w.renderer == nil {
		m.Notes = append(m.Notes, "plots disabled")
		return nil
	}
	if tr.Check() != nil {
		return nil
	}

	var buf bytes.Buffer
	if err := w.renderer.TimeSeries(&buf, tr.T, tr.Y); err != nil {
		log.Warn("time series plot skipped", "error", err)
		m.Notes = append(m.Notes, "time series plot skipped: "+err.Error())
	} else if err := pw.write(TimeSeriesPlot+w.renderer.Ext(), buf.Bytes()); err != nil {
		return err
	}

	if tr.Dim() != 2 {
		return nil
	}
	buf.Reset()
	if err := w.renderer.PhaseSpace(&buf, tr.Y[0], tr.Y[1]); err != nil {
		log.Warn("phase space plot skipped", "error", err)
		m.Notes = append(m.Notes, "phase space plot skipped: "+err.Error())
	} else if err := pw.write(PhaseSpacePlot+w.renderer.Ext(), buf.Bytes()); err != nil {
		return err
	}
	return nil
}

// marshal produces the pack's canonical JSON: two-space indent, no HTML
// escaping, trailing newline.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadManifest reads manifest.json from a pack.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
