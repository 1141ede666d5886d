package provider

import "time"

// linearBackOff waits step*n before retry n.
type linearBackOff struct {
	step    time.Duration
	retries int
}

func newLinearBackOff(step time.Duration) *linearBackOff {
	return &linearBackOff{step: step}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	if b.step <= 0 {
		return 0
	}
	return b.step * time.Duration(b.retries)
}

func (b *linearBackOff) Reset() {
	b.retries = 0
}

// sleeperTimer satisfies backoff.Timer by blocking in Start, so injected
// sleepers observe every wait the retry loop performs.
type sleeperTimer struct {
	sleep func(time.Duration)
	fired chan time.Time
}

func newSleeperTimer(sleep func(time.Duration)) *sleeperTimer {
	return &sleeperTimer{sleep: sleep, fired: make(chan time.Time, 1)}
}

func (t *sleeperTimer) Start(delay time.Duration) {
	t.sleep(delay)
	select {
	case t.fired <- time.Now():
	default:
	}
}

func (t *sleeperTimer) Stop() {}

func (t *sleeperTimer) C() <-chan time.Time {
	return t.fired
}
