package domain

import (
	"testing"
	"time"
)

func metricAt(at time.Time, payload string) *Metric {
	return &Metric{ServerID: "srv", CollectedAt: at, Payload: ParsePayload([]byte(payload))}
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	threshold := 5 * time.Minute

	tests := []struct {
		name   string
		metric *Metric
		want   HealthVerdict
	}{
		{
			name:   "no metric",
			metric: nil,
			want:   HealthUnknown,
		},
		{
			name:   "fresh ok report",
			metric: metricAt(now.Add(-30*time.Second), `{"status":"ok"}`),
			want:   HealthHealthy,
		},
		{
			name:   "old ok report is stale",
			metric: metricAt(now.Add(-10*time.Minute), `{"status":"ok"}`),
			want:   HealthStale,
		},
		{
			name:   "old failing report is stale",
			metric: metricAt(now.Add(-10*time.Minute), `{"status":"error"}`),
			want:   HealthStale,
		},
		{
			name:   "age equal to threshold is still fresh",
			metric: metricAt(now.Add(-threshold), `{"status":"ok"}`),
			want:   HealthHealthy,
		},
		{
			name:   "failure code",
			metric: metricAt(now.Add(-time.Minute), `{"status":"failed"}`),
			want:   HealthUnhealthy,
		},
		{
			name:   "failure code is case insensitive",
			metric: metricAt(now.Add(-time.Minute), `{"status":" DOWN "}`),
			want:   HealthUnhealthy,
		},
		{
			name:   "missing indicator is liveness only",
			metric: metricAt(now.Add(-time.Minute), `{"cpu":0.42,"memory":{"used":12}}`),
			want:   HealthHealthy,
		},
		{
			name:   "unrecognized indicator is liveness only",
			metric: metricAt(now.Add(-time.Minute), `{"status":"rebooting soon"}`),
			want:   HealthHealthy,
		},
		{
			name:   "non string indicator is liveness only",
			metric: metricAt(now.Add(-time.Minute), `{"status":500}`),
			want:   HealthHealthy,
		},
		{
			name:   "malformed payload is liveness only",
			metric: metricAt(now.Add(-time.Minute), `{not json`),
			want:   HealthHealthy,
		},
		{
			name:   "array payload is liveness only",
			metric: metricAt(now.Add(-time.Minute), `[1,2,3]`),
			want:   HealthHealthy,
		},
		{
			name:   "timestamp in the future is fresh",
			metric: metricAt(now.Add(time.Minute), `{"status":"ok"}`),
			want:   HealthHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.metric, now, threshold); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateNeverHealthyWhenStale(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{6 * time.Minute, time.Hour, 48 * time.Hour} {
		for _, payload := range []string{`{"status":"ok"}`, `{"status":"healthy"}`, `{}`, `garbage`} {
			if got := Evaluate(metricAt(now.Add(-age), payload), now, DefaultStaleThreshold); got != HealthStale {
				t.Errorf("Evaluate(age=%v, %s) = %v, want stale", age, payload, got)
			}
		}
	}
}

func TestIsRecognizedIndicator(t *testing.T) {
	if !IsRecognizedIndicator("ok") || !IsRecognizedIndicator("critical") {
		t.Error("ok and critical should be recognized")
	}
	if IsRecognizedIndicator("maybe") {
		t.Error("maybe should not be recognized")
	}
}
