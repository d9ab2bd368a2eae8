// Package netcheck runs a quick connectivity diagnosis through the
// device's own ping action: gateway, raw internet and DNS resolution.
// A failed step is recorded and the run continues; the report always
// contains every step.
package netcheck

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"routerdash/backend/rdashd/internal/wan"
	"routerdash/backend/rdashd/pkg/routeros"
)

// Pinger is the slice of the device client the checker needs.
type Pinger interface {
	Ping(ctx context.Context, address string, count int) ([]routeros.PingResult, error)
}

// Step identifies one stage of the check.
type Step string

const (
	StepGateway  Step = "gateway"
	StepInternet Step = "internet"
	StepDNS      Step = "dns"
)

// Result is the outcome of a single step.
type Result struct {
	Step    Step   `json:"step"`
	Target  string `json:"target"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Report is the full run, steps in execution order.
type Report struct {
	RanAt   time.Time `json:"ranAt"`
	Results []Result  `json:"results"`
	Healthy bool      `json:"healthy"`
}

const (
	internetTarget = "8.8.8.8"
	dnsTarget      = "google.com"

	maxAttempts = 2
	retryDelay  = 500 * time.Millisecond
	stepDelay   = 200 * time.Millisecond
)

// Checker runs quick checks against one device.
type Checker struct {
	logger zerolog.Logger
	pinger Pinger
	sleep  func(context.Context, time.Duration)
}

func New(logger zerolog.Logger, pinger Pinger) *Checker {
	return &Checker{
		logger: logger.With().Str("component", "netcheck").Logger(),
		pinger: pinger,
		sleep:  sleepCtx,
	}
}

// Run executes the three steps in order. gw comes from the WAN resolver;
// a nil gw skips the gateway step rather than failing it.
func (c *Checker) Run(ctx context.Context, gw *wan.Result) Report {
	report := Report{RanAt: time.Now().UTC()}

	if gw == nil || gw.Gateway == "" {
		report.Results = append(report.Results, Result{
			Step: StepGateway, OK: false, Skipped: true,
			Detail: "no default gateway address",
		})
	} else {
		report.Results = append(report.Results, c.step(ctx, StepGateway, gw.Gateway))
		c.sleep(ctx, stepDelay)
	}

	report.Results = append(report.Results, c.step(ctx, StepInternet, internetTarget))
	c.sleep(ctx, stepDelay)
	report.Results = append(report.Results, c.step(ctx, StepDNS, dnsTarget))

	report.Healthy = true
	for _, r := range report.Results {
		if !r.OK && !r.Skipped {
			report.Healthy = false
		}
	}
	return report
}

func (c *Checker) step(ctx context.Context, step Step, target string) Result {
	res := Result{Step: step, Target: target}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		replies, err := c.pinger.Ping(ctx, target, 1)
		if err != nil {
			res.Detail = err.Error()
		} else if reachable(replies) {
			res.OK = true
			res.Detail = ""
			break
		} else {
			res.Detail = "no reply"
		}
		if attempt < maxAttempts {
			c.sleep(ctx, retryDelay)
		}
	}
	if !res.OK {
		c.logger.Debug().Str("step", string(step)).Str("target", target).
			Str("detail", res.Detail).Msg("check step failed")
	}
	return res
}

// reachable follows the device convention: any reply row with a non-zero
// received count means the target answered.
func reachable(replies []routeros.PingResult) bool {
	for _, r := range replies {
		if r.Received != 0 {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
