package signal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// StatusMonitor synchronizes a trigger with instrument state by polling.
//
// Run fires the trigger commands, then polls the status command until the
// threshold predicate passes, then posts the acknowledge command.  This is
// how a buffered acquisition is awaited on instruments with no service
// request line: e.g. fire INIT, poll the trigger count until it reaches the
// programmed number, then re-arm.
type StatusMonitor struct {
	// CL is the control layer commands are issued against
	CL ControlLayer

	// TriggerNames are commands fired, in order, to initiate acquisition
	TriggerNames   []string
	TriggerConfigs map[string]interface{}

	// StatusName is the command polled while waiting
	StatusName    string
	StatusConfigs map[string]interface{}

	// Threshold decides whether the polled value satisfies Level
	Threshold func(value interface{}, level float64) bool
	Level     float64

	// PollInterval is the spacing between status polls (default 100ms)
	PollInterval time.Duration

	// PostName is the command posted once the threshold passes
	PostName    string
	PostConfigs map[string]interface{}

	// Timeout bounds the whole wait (default 30s)
	Timeout time.Duration
}

// Run executes the monitor sequence.  The acknowledge posts exactly once,
// and only after the threshold passes; on timeout or error it never posts.
func (m *StatusMonitor) Run() error {
	timeout := m.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.run(ctx)
}

func (m *StatusMonitor) run(ctx context.Context) error {
	for _, tn := range m.TriggerNames {
		if err := m.CL.Set(tn, nil, m.TriggerConfigs); err != nil {
			return err
		}
	}
	interval := m.PollInterval
	if interval == 0 {
		interval = 100 * time.Millisecond
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	for {
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("status monitor for %s: %w", m.StatusName, err)
		}
		v, err := m.CL.Get(m.StatusName, m.StatusConfigs)
		if err != nil {
			return err
		}
		if m.Threshold(v, m.Level) {
			break
		}
	}
	if m.PostName == "" {
		return nil
	}
	return m.CL.Set(m.PostName, nil, m.PostConfigs)
}

// GreaterEq is a threshold predicate passing when the polled numeric value
// is at least level.
func GreaterEq(value interface{}, level float64) bool {
	switch v := value.(type) {
	case float64:
		return v >= level
	case int:
		return float64(v) >= level
	case bool:
		if v {
			return 1 >= level
		}
		return 0 >= level
	default:
		return false
	}
}
