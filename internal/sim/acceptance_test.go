package sim_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/metrics"
	"github.com/san-kum/quadsim/internal/scenario"
	"github.com/san-kum/quadsim/internal/sim"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func fly(cfg *config.Config, kind control.Kind, ref dynamo.ReferenceFunc, start r3.Vec, duration float64) *dynamo.Result {
	s, err := sim.Build(cfg, kind)
	Expect(err).NotTo(HaveOccurred())
	x0, err := sim.InitialState(cfg)
	Expect(err).NotTo(HaveOccurred())
	x0.SetPosition(start)

	res, err := s.Run(context.Background(), x0, ref, sim.RunConfig(cfg, duration))
	Expect(err).NotTo(HaveOccurred())
	return res
}

var _ = Describe("Closed-loop flight", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.GetPreset("calm")
		Expect(cfg).NotTo(BeNil())
	})

	Context("hovering with LQR and no disturbance", func() {
		var res *dynamo.Result

		BeforeEach(func() {
			c := config.GetPreset("precise")
			res = fly(c, control.KindLQR, scenario.Hover(c.Traj), r3.Vec{Z: c.Traj.HoverZ - 0.1}, 5)
		})

		It("logs floor(T/dt)+1 samples ending at the horizon", func() {
			Expect(res.Len()).To(Equal(501))
			Expect(res.Times[res.Len()-1]).To(BeNumerically("~", 5.0, 1e-12))
		})

		It("keeps the RMSE small and converges to the target", func() {
			m := metrics.Evaluate(res)
			Expect(m["rmse_pos"]).To(BeNumerically("<", 0.02))
			Expect(m["final_pos_err"]).To(BeNumerically("<", 2e-3))
			Expect(m["peak_thrust"]).To(BeNumerically("<=", 1.2))
		})

		It("keeps the attitude quaternion normalized at every sample", func() {
			for _, x := range res.States {
				Expect(quat.Abs(x.Attitude())).To(BeNumerically("~", 1.0, 1e-9))
			}
		})
	})

	Context("tracking the circle", func() {
		start := r3.Vec{X: 1, Z: 1}

		It("tracks with LQR", func() {
			res := fly(cfg, control.KindLQR, scenario.Circle(cfg.Traj), start, 20)
			Expect(metrics.Evaluate(res)["rmse_pos"]).To(BeNumerically("<", 0.15))
		})

		It("tracks with PID", func() {
			res := fly(cfg, control.KindPID, scenario.Circle(cfg.Traj), start, 20)
			m := metrics.Evaluate(res)
			Expect(m["rmse_pos"]).To(BeNumerically("<", 0.3))
			Expect(m["quat_norm_drift"]).To(BeNumerically("<", 1e-9))
		})

		It("logs the exact centripetal feed-forward reference", func() {
			res := fly(cfg, control.KindLQR, scenario.Circle(cfg.Traj), start, 2)
			ref := scenario.Circle(cfg.Traj)
			for k, tk := range res.Times {
				Expect(res.RefPositions[k]).To(Equal(ref(tk).Position))
				Expect(res.RefVelocities[k]).To(Equal(ref(tk).Velocity))
			}
		})
	})

	Context("with disturbances", func() {
		run := func(level int, seed int64) *dynamo.Result {
			c := cfg.Clone()
			c.Disturbance.Level = level
			c.Disturbance.Seed = seed
			return fly(c, control.KindLQR, scenario.Hover(c.Traj), r3.Vec{Z: c.Traj.HoverZ}, 3)
		}

		DescribeTable("reproduces a run from its seed",
			func(level int) {
				a := run(level, 11)
				b := run(level, 11)
				Expect(a.States).To(Equal(b.States))
			},
			Entry("medium", 1),
			Entry("strong", 2),
		)

		It("diverges for different seeds", func() {
			a := run(2, 11)
			b := run(2, 12)
			Expect(a.States[a.Len()-1]).NotTo(Equal(b.States[b.Len()-1]))
		})

		It("stays on station under strong disturbance", func() {
			res := run(2, 5)
			m := metrics.Evaluate(res)
			Expect(m["stability"]).To(Equal(1.0))
			Expect(m["max_pos_err"]).To(BeNumerically("<", 0.5))
		})
	})
})
