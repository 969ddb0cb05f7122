package showcase

import (
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/showcase/timing"
)

var _ = Describe("Showcase on a virtual clock", func() {
	const interval = 5000 * time.Millisecond

	var (
		engine *timing.SerialEngine
		ctrl   *Controller[string]
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()

		var err error
		ctrl, err = MakeBuilder[string]().
			WithItems([]string{"A", "B", "C"}).
			WithInterval(interval).
			WithScheduler(engine).
			Build()
		Expect(err).ToNot(HaveOccurred())
	})

	It("should follow the hover and select scenario", func() {
		Expect(ctrl.ActiveIndex()).To(Equal(0))

		Expect(engine.Advance(interval)).To(Succeed())
		Expect(ctrl.ActiveIndex()).To(Equal(1))

		ctrl.InteractionStart()
		Expect(engine.Advance(2 * interval)).To(Succeed())
		Expect(ctrl.ActiveIndex()).To(Equal(1))

		ctrl.InteractionEnd()
		Expect(engine.Advance(interval)).To(Succeed())
		Expect(ctrl.ActiveIndex()).To(Equal(2))

		Expect(ctrl.Select(0)).To(Succeed())
		Expect(ctrl.ActiveIndex()).To(Equal(0))
		Expect(ctrl.Paused()).To(BeTrue())
	})

	It("should re-arm from the moment the interaction ends", func() {
		Expect(engine.Advance(2 * time.Second)).To(Succeed())
		ctrl.InteractionStart()
		Expect(engine.Advance(10 * time.Second)).To(Succeed())

		ctrl.InteractionEnd()
		Expect(engine.Advance(interval - time.Millisecond)).To(Succeed())
		Expect(ctrl.ActiveIndex()).To(Equal(0))

		Expect(engine.Advance(time.Millisecond)).To(Succeed())
		Expect(ctrl.ActiveIndex()).To(Equal(1))
	})

	It("should advance at most once per unpause", func() {
		ctrl.InteractionStart()
		Expect(engine.Advance(100 * interval)).To(Succeed())

		ctrl.InteractionEnd()
		Expect(engine.Advance(interval)).To(Succeed())

		Expect(ctrl.ActiveIndex()).To(Equal(1))
	})

	It("should keep at most one timer after repeated interaction ends", func() {
		ctrl.InteractionStart()
		Expect(engine.Advance(interval)).To(Succeed())
		Expect(engine.Pending()).To(Equal(0))

		for i := 0; i < 10; i++ {
			ctrl.InteractionEnd()
		}

		Expect(engine.Pending()).To(Equal(1))
	})

	It("should leave no timer behind after dispose", func() {
		ctrl.Dispose()

		Expect(engine.Pending()).To(Equal(0))
		Expect(engine.Advance(10 * interval)).To(Succeed())
		Expect(ctrl.ActiveIndex()).To(Equal(0))
	})
})

var _ = Describe("Wrap-around", func() {
	It("should go from the last of five items to the first", func() {
		engine := timing.NewSerialEngine()
		ctrl, err := MakeBuilder[int]().
			WithItems([]int{0, 1, 2, 3, 4}).
			WithInterval(time.Second).
			WithScheduler(engine).
			Build()
		Expect(err).ToNot(HaveOccurred())

		Expect(ctrl.Select(4)).To(Succeed())
		ctrl.InteractionEnd()
		Expect(engine.Advance(time.Second)).To(Succeed())

		Expect(ctrl.ActiveIndex()).To(Equal(0))
	})
})

var _ = Describe("Random operation sequences", func() {
	It("should keep every invariant", func() {
		rng := rand.New(rand.NewSource(42))

		for round := 0; round < 50; round++ {
			n := 1 + rng.Intn(6)
			items := make([]int, n)
			for i := range items {
				items[i] = i
			}

			engine := timing.NewSerialEngine()
			ctrl, err := MakeBuilder[int]().
				WithItems(items).
				WithInterval(time.Second).
				WithScheduler(engine).
				Build()
			Expect(err).ToNot(HaveOccurred())

			for step := 0; step < 200; step++ {
				before := ctrl.State()

				switch rng.Intn(7) {
				case 0:
					_ = ctrl.Select(rng.Intn(n+2) - 1)
				case 1:
					ctrl.InteractionStart()
				case 2:
					ctrl.InteractionEnd()
				case 3:
					ctrl.Tick()
				case 4:
					Expect(engine.Advance(
						time.Duration(rng.Intn(3000)) * time.Millisecond,
					)).To(Succeed())
				case 5:
					if before.Paused {
						Expect(engine.Advance(5 * time.Second)).To(Succeed())
						Expect(ctrl.ActiveIndex()).To(Equal(before.ActiveIndex))
					}
				case 6:
					if rng.Intn(20) == 0 {
						ctrl.Dispose()
					}
				}

				Expect(ctrl.ActiveIndex()).To(BeNumerically(">=", 0))
				Expect(ctrl.ActiveIndex()).To(BeNumerically("<", n))
				Expect(engine.Pending()).To(BeNumerically("<=", 1))
				Expect(engine.Pending() == 1).To(Equal(ctrl.TimerPending()))

				if before.Disposed {
					Expect(ctrl.ActiveIndex()).To(Equal(before.ActiveIndex))
					Expect(ctrl.Paused()).To(Equal(before.Paused))
				}
			}
		}
	})
})
