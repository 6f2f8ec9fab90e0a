package subscription

// MetricsRecorder receives reconciliation and webhook outcomes.
type MetricsRecorder interface {
	ObserveReconcile(source, outcome string)
	ObserveWebhook(eventType, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveReconcile(string, string) {}
func (nopMetrics) ObserveWebhook(string, string)   {}
