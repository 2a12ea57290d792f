package trace_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/phytrace/internal/dynamo"
	"github.com/san-kum/phytrace/internal/evidence"
	"github.com/san-kum/phytrace/internal/golden"
	"github.com/san-kum/phytrace/internal/integrators"
	"github.com/san-kum/phytrace/internal/invariant"
	"github.com/san-kum/phytrace/internal/models"
	"github.com/san-kum/phytrace/internal/provenance"
	"github.com/san-kum/phytrace/internal/trace"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var staticEnv = provenance.Static(provenance.Environment{
	GoVersion: provenance.Captured("go1.24.0"),
	Module:    provenance.Captured("github.com/san-kum/phytrace@(devel)"),
	Packages:  provenance.Captured(map[string]string{}),
	System:    provenance.Captured(provenance.System{OS: "linux", Arch: "amd64", NumCPU: 4}),
	Git:       provenance.Unavailable[provenance.Git]("not a git repository"),
})

func dampedSpec() trace.Spec {
	return trace.Spec{
		System:     models.DampedOscillator{},
		Params:     dynamo.Params{"k": 1, "c": 0.1, "m": 1},
		Span:       dynamo.Span{Start: 0, End: 10},
		Y0:         dynamo.State{1, 0},
		Invariants: []invariant.Checkable{invariant.Bounded(-2, 2), invariant.Finite()},
		Logger:     quiet,
		Capturer:   staticEnv,
	}
}

func belowTen(_ float64, y dynamo.State, _ dynamo.Params) bool {
	return y[0] <= 10
}

func growthSpec() trace.Spec {
	return trace.Spec{
		System:     models.ExponentialGrowth{},
		Params:     dynamo.Params{"k": 2},
		Span:       dynamo.Span{Start: 0, End: 5},
		Y0:         dynamo.State{1},
		Invariants: []invariant.Checkable{invariant.New("y_below_10", invariant.SeverityCritical, invariant.Stateless(belowTen))},
		Logger:     quiet,
		Capturer:   staticEnv,
	}
}

var _ = Describe("Run", func() {
	ctx := context.Background()

	Describe("damped oscillator", func() {
		It("passes every check without violations", func() {
			res, err := trace.Run(ctx, dampedSpec())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.ChecksPassed).To(BeTrue())
			Expect(res.Invariants.Invariants).To(HaveLen(2))
			for _, r := range res.Invariants.Invariants {
				Expect(r.Violations).To(BeZero(), r.Name)
				Expect(r.Checks).To(Equal(res.Steps), r.Name)
			}
			Expect(res.FinalTime()).To(Equal(10.0))
		})

		It("keeps time strictly increasing and the result state-major", func() {
			res, err := trace.Run(ctx, dampedSpec())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Dim()).To(Equal(2))
			Expect(res.Y[0]).To(HaveLen(len(res.T)))
			for i := 1; i < len(res.T); i++ {
				Expect(res.T[i]).To(BeNumerically(">", res.T[i-1]))
			}
			Expect(res.Y[0][0]).To(Equal(1.0))
			Expect(res.Y[1][0]).To(Equal(0.0))
		})
	})

	Describe("exponential growth with a critical threshold", func() {
		It("aborts near t=1.15 with the offending state", func() {
			res, err := trace.Run(ctx, growthSpec())

			var crit *invariant.CriticalViolationError
			Expect(errors.As(err, &crit)).To(BeTrue())
			Expect(crit.Check).To(Equal("y_below_10"))
			Expect(crit.Time).To(BeNumerically(">", math.Log(10)/2))
			Expect(crit.Time).To(BeNumerically("<", 5))
			Expect(crit.State[0]).To(BeNumerically(">", 10))

			Expect(res).NotTo(BeNil())
			Expect(res.Success).To(BeFalse())
			Expect(res.ChecksPassed).To(BeFalse())
			Expect(res.T).To(HaveLen(crit.Step + 1))
			Expect(res.FinalTime()).To(Equal(crit.Time))
			Expect(res.Invariants.Invariants[0].Checks).To(Equal(crit.Step))
			Expect(res.Message).To(ContainSubstring("y_below_10"))
		})

		It("writes an evidence pack for the aborted run", func() {
			spec := growthSpec()
			spec.EvidenceDir = filepath.Join(GinkgoT().TempDir(), "aborted")

			res, err := trace.Run(ctx, spec)
			Expect(err).To(HaveOccurred())
			Expect(res.EvidenceErr).NotTo(HaveOccurred())
			Expect(res.EvidenceDir).To(Equal(spec.EvidenceDir))

			v := evidence.Validate(spec.EvidenceDir)
			Expect(v.Valid).To(BeTrue(), "%v", v.Issues)

			m, err := evidence.LoadManifest(spec.EvidenceDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Abort).NotTo(BeNil())
			Expect(m.Abort.Kind).To(Equal(evidence.AbortCriticalViolation))
			Expect(m.SolverStats.Success).To(BeFalse())
			Expect(m.SolverStats.Points).To(Equal(len(res.T)))

			tr, err := evidence.LoadTrajectory(spec.EvidenceDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.T).To(Equal(res.T))
		})
	})

	It("writes an evidence pack when the state blows up to infinity", func() {
		spec := trace.Spec{
			System: dynamo.SystemFunc(func(t float64, _ dynamo.State, _ dynamo.Params) dynamo.State {
				if t >= 0.5 {
					return dynamo.State{math.Inf(1)}
				}
				return dynamo.State{1}
			}),
			Span:        dynamo.Span{Start: 0, End: 2},
			Y0:          dynamo.State{0},
			Solver:      integrators.Options{Method: "EULER", FirstStep: 0.1},
			Invariants:  []invariant.Checkable{invariant.Finite()},
			Logger:      quiet,
			Capturer:    staticEnv,
			EvidenceDir: filepath.Join(GinkgoT().TempDir(), "blowup"),
		}

		var res *trace.Result
		var err error
		Expect(func() { res, err = trace.Run(ctx, spec) }).NotTo(Panic())

		var crit *invariant.CriticalViolationError
		Expect(errors.As(err, &crit)).To(BeTrue())
		Expect(crit.Check).To(Equal("finite"))
		Expect(res.EvidenceErr).NotTo(HaveOccurred())

		v := evidence.Validate(spec.EvidenceDir)
		Expect(v.Valid).To(BeTrue(), "%v", v.Issues)

		tr, err := evidence.LoadTrajectory(spec.EvidenceDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(math.IsInf(tr.Y[0][tr.Len()-1], 1)).To(BeTrue())
	})

	It("keeps the error flag sticky once an error check fails", func() {
		spec := dampedSpec()
		spec.Invariants = []invariant.Checkable{
			invariant.New("early", invariant.SeverityError, invariant.Stateless(func(t float64, _ dynamo.State, _ dynamo.Params) bool {
				return t > 0.5
			})),
			invariant.New("soft", invariant.SeverityWarning, invariant.Stateless(func(float64, dynamo.State, dynamo.Params) bool {
				return false
			})),
		}
		res, err := trace.Run(ctx, spec)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success).To(BeTrue())
		Expect(res.ChecksPassed).To(BeFalse())
		for _, r := range res.Invariants.Invariants {
			Expect(r.Violations).To(BeNumerically("<=", r.Checks))
		}
	})

	It("auto-wraps bare predicates with severity error", func() {
		spec := growthSpec()
		spec.Invariants = []invariant.Checkable{invariant.Stateless(belowTen)}
		res, err := trace.Run(ctx, spec)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Definitions[0].Name).To(Equal("belowTen"))
		Expect(res.Definitions[0].Severity).To(Equal(invariant.SeverityError))
		Expect(res.Success).To(BeTrue())
		Expect(res.ChecksPassed).To(BeFalse())
	})

	It("rejects duplicate invariant names before integrating", func() {
		spec := dampedSpec()
		spec.Invariants = []invariant.Checkable{invariant.Finite(), invariant.Finite()}
		res, err := trace.Run(ctx, spec)
		Expect(err).To(MatchError(invariant.ErrDuplicateName))
		Expect(res).To(BeNil())
	})

	It("surfaces crashing predicates as predicate errors", func() {
		spec := dampedSpec()
		spec.Invariants = []invariant.Checkable{
			invariant.New("broken", invariant.SeverityWarning, invariant.Stateless(func(_ float64, y dynamo.State, _ dynamo.Params) bool {
				return y[7] > 0
			})),
		}
		res, err := trace.Run(ctx, spec)
		var perr *invariant.PredicateError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(errors.Is(err, invariant.ErrCriticalViolation)).To(BeFalse())
		Expect(res.Success).To(BeFalse())
		Expect(res.T).To(HaveLen(2))
	})

	It("reports integrator failures without an error", func() {
		spec := dampedSpec()
		spec.Solver = integrators.Options{MaxSteps: 3}
		res, err := trace.Run(ctx, spec)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success).To(BeFalse())
		Expect(res.Status).To(Equal(integrators.StatusFailed))
		Expect(res.T).To(HaveLen(4))
	})

	It("stops on cancellation", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res, err := trace.Run(cctx, dampedSpec())
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Success).To(BeFalse())
		Expect(res.Status).To(Equal(integrators.StatusCanceled))
	})

	It("survives a panicking environment capturer", func() {
		spec := dampedSpec()
		spec.Capturer = provenance.CapturerFunc(func(context.Context) provenance.Environment {
			panic("no environment today")
		})
		res, err := trace.Run(ctx, spec)
		Expect(err).NotTo(HaveOccurred())
		env := res.Manifest().Environment
		Expect(env.GoVersion.IsCaptured()).To(BeFalse())
		Expect(env.GoVersion.Reason()).To(ContainSubstring("no environment today"))
	})

	It("threads the seed context into seedable systems", func() {
		run := func(s int64) []float64 {
			spec := dampedSpec()
			spec.System = &models.ForcedOscillator{}
			spec.Params = dynamo.Params{"k": 1, "c": 0.2, "m": 1, "amp": 0.5, "bin": 0.1}
			spec.Seed = &s
			res, err := trace.Run(ctx, spec)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Manifest().Seeds.Sources["math/rand"]).To(BeTrue())
			return res.Y[0]
		}
		Expect(run(1)).To(Equal(run(1)))
		Expect(run(1)).NotTo(Equal(run(2)))
	})

	It("records a failed evidence write without changing success", func() {
		blocker := filepath.Join(GinkgoT().TempDir(), "file")
		Expect(os.WriteFile(blocker, []byte("x"), 0o644)).To(Succeed())

		spec := dampedSpec()
		spec.EvidenceDir = filepath.Join(blocker, "pack")
		res, err := trace.Run(ctx, spec)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success).To(BeTrue())

		var werr *evidence.WriteError
		Expect(errors.As(res.EvidenceErr, &werr)).To(BeTrue())
		Expect(res.EvidenceDir).To(BeEmpty())
	})

	It("writes identical manifests for the same result", func() {
		res, err := trace.Run(ctx, dampedSpec())
		Expect(err).NotTo(HaveOccurred())

		dirA, dirB := GinkgoT().TempDir(), GinkgoT().TempDir()
		_, err = res.WriteEvidence(dirA, evidence.NewWriter(evidence.WithLogger(quiet)))
		Expect(err).NotTo(HaveOccurred())
		_, err = res.WriteEvidence(dirB, evidence.NewWriter(evidence.WithLogger(quiet)))
		Expect(err).NotTo(HaveOccurred())

		a, err := os.ReadFile(filepath.Join(dirA, evidence.ManifestFile))
		Expect(err).NotTo(HaveOccurred())
		b, err := os.ReadFile(filepath.Join(dirB, evidence.ManifestFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(a)).To(Equal(string(b)))

		log, err := os.ReadFile(filepath.Join(dirA, evidence.RunLogFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(log)).To(ContainSubstring("run started"))
		Expect(string(log)).To(ContainSubstring(res.RunID))
	})

	Describe("chaotic double pendulum", func() {
		It("diverges with time under a 0.01 rad perturbation", func() {
			base := trace.Spec{
				System:   models.DoublePendulum{},
				Params:   dynamo.Params{"m1": 1, "m2": 1, "L1": 1, "L2": 1, "g": 9.81},
				Span:     dynamo.Span{Start: 0, End: 20},
				Logger:   quiet,
				Capturer: staticEnv,
				Solver:   integrators.Options{RTol: 1e-8, ATol: 1e-10},
			}

			specA, specB := base, base
			specA.Y0 = dynamo.State{math.Pi / 2, math.Pi / 2, 0, 0}
			specB.Y0 = dynamo.State{math.Pi/2 + 0.01, math.Pi / 2, 0, 0}
			specA.EvidenceDir = filepath.Join(GinkgoT().TempDir(), "a")
			specB.EvidenceDir = filepath.Join(GinkgoT().TempDir(), "b")

			_, err := trace.Run(ctx, specA)
			Expect(err).NotTo(HaveOccurred())
			_, err = trace.Run(ctx, specB)
			Expect(err).NotTo(HaveOccurred())

			a, err := golden.FromPack("a", specA.EvidenceDir)
			Expect(err).NotTo(HaveOccurred())
			b, err := golden.FromPack("b", specB.EvidenceDir)
			Expect(err).NotTo(HaveOccurred())

			report := golden.Compare(a, b, golden.WithTolerance(1e-6, 1e-6))
			Expect(report.WithinTolerance).To(BeFalse())

			div := report.Divergence
			Expect(div).To(HaveLen(100))
			early := maxOf(div[:10])
			late := maxOf(div[len(div)-25:])
			Expect(early).To(BeNumerically("<", 0.5))
			Expect(late).To(BeNumerically(">", 10*early))
			Expect(report.GrowthRate()).To(BeNumerically(">", 0))
		})
	})
})

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}

