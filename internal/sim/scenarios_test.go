package sim

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/terrasim/internal/compute"
	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
	"github.com/san-kum/terrasim/internal/terrain"
)

func scenarioTerrain(kind string, w, h int, relief float64) *grid.Grid[float64] {
	g, err := terrain.Build(terrain.Spec{Kind: kind, Width: w, Height: h, Relief: relief, Seed: 3})
	Expect(err).NotTo(HaveOccurred())
	return g
}

func scenarioSimulator(cfg Config, elev grid.Reader[float64]) *Simulator {
	s, err := New(cfg, elev, WithBackend(compute.NewSerialBackend()))
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Simulation", func() {
	Describe("scale invariance", func() {
		It("scores an island alike from valley to continent", func() {
			elev := scenarioTerrain("island", 32, 32, 1000)
			var scores []float64
			for _, km := range []float64{10, 100, 1000, 10000} {
				s := scenarioSimulator(testConfig(km, 32, 32), elev)
				_, err := s.Run(context.Background(), 6)
				Expect(err).NotTo(HaveOccurred())
				scores = append(scores, s.Validator().History().Mean(diagnostics.ScoreOf))
			}
			for _, sc := range scores {
				Expect(sc).To(BeNumerically("~", scores[0], 0.05))
			}
		})
	})

	Describe("conservation and stability", func() {
		var s *Simulator

		BeforeEach(func() {
			cfg := testConfig(300, 40, 24)
			cfg.RainRate = 5e-6
			cfg.NoiseAmplitude = 150
			cfg.Seed = 11
			s = scenarioSimulator(cfg, scenarioTerrain("rough", 40, 24, 1200))
		})

		It("keeps every tick inside the mass tolerance and CFL bound", func() {
			for i := 0; i < 20; i++ {
				frame, err := s.Step()
				Expect(err).NotTo(HaveOccurred())
				Expect(frame.Report.MassConservationError).To(BeNumerically("<", scale.MassTolerance))
				Expect(frame.Report.CFLViolations).To(BeZero())
				Expect(frame.Report.MaxCFL).To(BeNumerically("<=", 1))
				Expect(grid.AllFinite(frame.Hydro.Depth)).To(BeTrue())
				Expect(grid.AllFinite(frame.Atmos.Pressure)).To(BeTrue())
				Expect(grid.AllFinite(frame.Elevation)).To(BeTrue())
			}
		})

		It("holds the CFL bound when rain falls on a dry grid without a step hint", func() {
			cfg := testConfig(100, 16, 16)
			cfg.DtHint = 0
			cfg.InitialDepth = 0
			cfg.RainRate = 1e-5
			dry := scenarioSimulator(cfg, scenarioTerrain("island", 16, 16, 500))
			for i := 0; i < 5; i++ {
				frame, err := dry.Step()
				Expect(err).NotTo(HaveOccurred())
				Expect(frame.Report.CFLViolations).To(BeZero())
				Expect(frame.Report.MaxCFL).To(BeNumerically("<=", 1))
			}
		})

		It("accounts for every cubic metre in the drainage ledger", func() {
			_, err := s.Run(context.Background(), 15)
			Expect(err).NotTo(HaveOccurred())
			d := s.Drainage()
			Expect(d.BalanceError).To(BeNumerically("<", 1e-6))
			Expect(d.Rain).To(BeNumerically(">", 0))
			Expect(d.Ticks).To(Equal(int64(15)))
		})
	})

	Describe("equatorial safety", func() {
		It("never divides by a vanishing Coriolis parameter", func() {
			cfg := testConfig(40000, 64, 32)
			cfg.NoiseAmplitude = 400
			s := scenarioSimulator(cfg, scenarioTerrain("rough", 64, 32, 3000))
			for i := 0; i < 5; i++ {
				frame, err := s.Step()
				Expect(err).NotTo(HaveOccurred())
				Expect(frame.Atmos.MaxWindSpeed()).To(BeNumerically("<=", scale.MaxRealisticWind))
				Expect(grid.AllFinite(frame.Atmos.WindU)).To(BeTrue())
				Expect(grid.AllFinite(frame.Atmos.WindV)).To(BeTrue())
			}
		})
	})

	Describe("geological evolution", func() {
		It("reshapes a rain-soaked slope measurably", func() {
			cfg := testConfig(12, 12, 12)
			cfg.RainRate = 1e-5 / 3.6
			cfg.Authority = AuthorityHydraulic
			elev := scenarioTerrain("slope", 12, 12, 60)
			s := scenarioSimulator(cfg, elev)

			_, err := s.Run(context.Background(), 40)
			Expect(err).NotTo(HaveOccurred())

			after := s.Elevation()
			change := 0.0
			for i := 0; i < elev.Len(); i++ {
				change = math.Max(change, math.Abs(after.AtIndex(i)-elev.AtIndex(i)))
			}
			Expect(change).To(BeNumerically(">", 1e-6))
		})

		It("moves sand downwind on aeolian ticks only", func() {
			cfg := testConfig(40, 16, 16)
			cfg.RainRate = 0
			cfg.InitialDepth = 0
			cfg.Authority = AuthorityAeolian
			s := scenarioSimulator(cfg, scenarioTerrain("flat", 16, 16, 200))

			for i := 0; i < 4; i++ {
				frame, err := s.Step()
				Expect(err).NotTo(HaveOccurred())
				Expect(frame.Erosion).To(Equal(PassAeolian))
				Expect(frame.Result.Eroded).To(BeZero())
			}
		})
	})
})
