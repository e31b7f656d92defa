package app

import "time"

// Metrics receives game events. *metrics.GameMetrics implements it.
type Metrics interface {
	VoteResult(result string)
	PostCreated()
	Revealed(trigger, outcome string, liarScore int64, took time.Duration)
	RevealFailed(trigger string)
	SweepCompleted(failures int)
	SweepAborted()
}

type noopMetrics struct{}

func (noopMetrics) VoteResult(string)                             {}
func (noopMetrics) PostCreated()                                  {}
func (noopMetrics) Revealed(string, string, int64, time.Duration) {}
func (noopMetrics) RevealFailed(string)                           {}
func (noopMetrics) SweepCompleted(int)                            {}
func (noopMetrics) SweepAborted()                                 {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
