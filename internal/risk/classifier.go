package risk

// MetricKind names a classifiable metric.
type MetricKind string

const (
	CPUPercent      MetricKind = "cpu_percent"
	MemoryPercent   MetricKind = "memory_percent"
	TrafficAnomaly  MetricKind = "traffic_anomaly"
	SuspiciousCount MetricKind = "suspicious_count"
)

// Rule holds the strict greater-than bounds for one metric kind.
// A bound of nil means the tier is never reached through this rule.
type Rule struct {
	Kind    MetricKind
	Warning *float64
	Danger  *float64
}

func bound(v float64) *float64 { return &v }

// rules is the one rule table shared by every caller. Boolean metrics are
// encoded as 0/1 with a danger bound of 0.
var rules = map[MetricKind]Rule{
	CPUPercent:      {Kind: CPUPercent, Warning: bound(60), Danger: bound(80)},
	MemoryPercent:   {Kind: MemoryPercent, Warning: bound(70), Danger: bound(85)},
	TrafficAnomaly:  {Kind: TrafficAnomaly, Danger: bound(0)},
	SuspiciousCount: {Kind: SuspiciousCount, Danger: bound(0)},
}

// Rules returns a copy of the rule table, keyed by metric kind.
func Rules() map[MetricKind]Rule {
	out := make(map[MetricKind]Rule, len(rules))
	for k, v := range rules {
		out[k] = v
	}
	return out
}

// Classify maps a metric value to a tier. Comparisons are strict, so a
// value sitting exactly on a bound gets the lower tier. Unknown kinds
// classify as Normal.
func Classify(kind MetricKind, value float64) Tier {
	rule, ok := rules[kind]
	if !ok {
		return Normal
	}
	switch {
	case rule.Danger != nil && value > *rule.Danger:
		return Danger
	case rule.Warning != nil && value > *rule.Warning:
		return Warning
	default:
		return Normal
	}
}

// ClassifyBool classifies a boolean metric such as TrafficAnomaly.
func ClassifyBool(kind MetricKind, v bool) Tier {
	if v {
		return Classify(kind, 1)
	}
	return Classify(kind, 0)
}

// ClassifyCount classifies an integer metric such as SuspiciousCount.
func ClassifyCount(kind MetricKind, n int) Tier {
	return Classify(kind, float64(n))
}
