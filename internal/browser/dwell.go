package browser

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
)

// Scroller produces natural-looking scrolling during post-navigation dwell
// time. A page that loads and sits perfectly still is its own kind of tell.
type Scroller struct {
	rand *rand.Rand
}

func NewScroller() *Scroller {
	return &Scroller{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RandomScroll scrolls a random browsing-like distance down the page.
func (s *Scroller) RandomScroll(page *rod.Page) error {
	distance := 200 + s.rand.Intn(400) // 200-600px
	return s.scrollNaturally(page, distance)
}

// scrollNaturally scrolls in small uneven steps with acceleration at the
// start and deceleration at the end, plus occasional back-scrolls and
// reading pauses.
func (s *Scroller) scrollNaturally(page *rod.Page, distance int) error {
	steps := distance / 50
	if steps == 0 {
		steps = 1
	}

	for i := 0; i < steps; i++ {
		speed := scrollSpeed(i, steps)
		delayMs := 50.0 / speed

		amount := 50 + s.rand.Intn(21) - 10

		if err := page.Mouse.Scroll(0, float64(amount), 1); err != nil {
			return err
		}
		time.Sleep(time.Duration(delayMs) * time.Millisecond)

		// Occasional scroll-back
		if s.rand.Float64() < 0.15 {
			if err := page.Mouse.Scroll(0, -10, 1); err != nil {
				return err
			}
			time.Sleep(200 * time.Millisecond)
		}

		// Reading pause
		if s.rand.Float64() < 0.1 {
			pause := 500 + s.rand.Intn(1500)
			time.Sleep(time.Duration(pause) * time.Millisecond)
		}
	}

	return nil
}

func scrollSpeed(step, total int) float64 {
	progress := float64(step) / float64(total)

	switch {
	case progress < 0.2:
		return 0.5 + progress*2.5
	case progress > 0.8:
		return 1.0 - (progress-0.8)*2.5
	default:
		return 1.0
	}
}
