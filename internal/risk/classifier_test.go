package risk

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		kind  MetricKind
		value float64
		want  Tier
	}{
		{"cpu idle", CPUPercent, 3.2, Normal},
		{"cpu at warning bound", CPUPercent, 60, Normal},
		{"cpu just over warning", CPUPercent, 61, Warning},
		{"cpu at danger bound", CPUPercent, 80, Warning},
		{"cpu over danger", CPUPercent, 85, Danger},
		{"cpu pegged", CPUPercent, 100, Danger},
		{"memory at warning bound", MemoryPercent, 70, Normal},
		{"memory warning", MemoryPercent, 70.1, Warning},
		{"memory at danger bound", MemoryPercent, 85, Warning},
		{"memory danger", MemoryPercent, 90, Danger},
		{"no anomaly", TrafficAnomaly, 0, Normal},
		{"anomaly", TrafficAnomaly, 1, Danger},
		{"nothing suspicious", SuspiciousCount, 0, Normal},
		{"one suspicious", SuspiciousCount, 1, Danger},
		{"unknown kind", MetricKind("gpu_percent"), 99, Normal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.kind, tt.value))
		})
	}
}

func TestClassifyBoolAndCount(t *testing.T) {
	assert.Equal(t, Danger, ClassifyBool(TrafficAnomaly, true))
	assert.Equal(t, Normal, ClassifyBool(TrafficAnomaly, false))
	assert.Equal(t, Danger, ClassifyCount(SuspiciousCount, 3))
	assert.Equal(t, Normal, ClassifyCount(SuspiciousCount, 0))
}

func TestClassify_Monotonic(t *testing.T) {
	for _, kind := range []MetricKind{CPUPercent, MemoryPercent, SuspiciousCount} {
		t.Run(string(kind), func(t *testing.T) {
			prev := Classify(kind, 0)
			for v := 0.0; v <= 100; v += 0.5 {
				cur := Classify(kind, v)
				assert.GreaterOrEqual(t, int(cur), int(prev), "classification dropped at %v", v)
				prev = cur
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, Warning, Classify(MemoryPercent, 80))
	}
}

func TestRulesReturnsCopy(t *testing.T) {
	r := Rules()
	delete(r, CPUPercent)
	assert.Equal(t, Danger, Classify(CPUPercent, 90))

	kinds := make([]string, 0, len(Rules()))
	for k := range Rules() {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	assert.Equal(t, []string{"cpu_percent", "memory_percent", "suspicious_count", "traffic_anomaly"}, kinds)
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in     string
		want   Tier
		wantOk bool
	}{
		{"HIGH", Danger, true},
		{"medium", Warning, true},
		{"Low", Normal, true},
		{"DANGER", Danger, true},
		{"warning", Warning, true},
		{" normal ", Normal, true},
		{"", Normal, false},
		{"CRITICAL", Normal, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTier(tt.in)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierOrderingAndMax(t *testing.T) {
	assert.True(t, Normal < Warning)
	assert.True(t, Warning < Danger)
	assert.Equal(t, Normal, Max())
	assert.Equal(t, Warning, Max(Normal, Warning, Normal))
	assert.Equal(t, Danger, Max(Danger, Warning))
}

func TestTierJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Level Tier `json:"level"`
	}{Warning})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"WARNING"}`, string(data))

	var got struct {
		Level Tier `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"HIGH"}`), &got))
	assert.Equal(t, Danger, got.Level)

	assert.Error(t, json.Unmarshal([]byte(`{"level":"nope"}`), &got))
	assert.Equal(t, "Tier(7)", Tier(7).String())
}
