package indicator

import (
	"context"
	"time"

	"github.com/cryptopuck/cryptopuck/internal/opstate"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// Pattern is one blink cycle. An Off duration of zero means steady on.
type Pattern struct {
	On  time.Duration
	Off time.Duration
}

// DefaultPatterns maps every state to its blink pattern.
var DefaultPatterns = map[opstate.State]Pattern{
	opstate.Idle:       {},
	opstate.Encrypting: {On: 100 * time.Millisecond, Off: time.Second},
	opstate.Error:      {On: 100 * time.Millisecond, Off: 300 * time.Millisecond},
}

// Controller shows the state held in State on Indicator.
type Controller struct {
	Indicator Indicator
	State     *opstate.Cell
	// Patterns overrides DefaultPatterns
	Patterns map[opstate.State]Pattern

	// failing suppresses repeated warnings while the driver keeps failing
	failing bool
}

// Run blinks until ctx is cancelled, then switches the indicator off.
// A state change interrupts the current cycle. Driver errors are logged and
// do not stop the loop.
func (c *Controller) Run(ctx context.Context) error {
	defer func() {
		c.check(c.Indicator.Off())
	}()
	patterns := c.Patterns
	if patterns == nil {
		patterns = DefaultPatterns
	}
	for {
		s := c.State.Get()
		p := patterns[s]
		c.check(c.Indicator.On())
		if p.Off == 0 {
			// Steady on until something happens
			select {
			case <-ctx.Done():
				return nil
			case <-c.State.Changed():
				continue
			}
		}
		if !c.sleep(ctx, p.On) {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		c.check(c.Indicator.Off())
		if !c.sleep(ctx, p.Off) && ctx.Err() != nil {
			return nil
		}
	}
}

// sleep waits for "d". It returns false if it was cut short by ctx or a
// state change.
func (c *Controller) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-c.State.Changed():
		return false
	}
}

func (c *Controller) check(err error) {
	if err == nil {
		if c.failing {
			tlog.Info.Printf("indicator: driver works again")
		}
		c.failing = false
		return
	}
	if !c.failing {
		tlog.Warn.Printf("indicator: %v", err)
	}
	c.failing = true
}
