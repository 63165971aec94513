package internaldefs

import (
	"github.com/MrEthical07/gatekeeper"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   gatekeeper.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   gatekeeper.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: gatekeeper.MetricLoginSuccess, Name: "gatekeeper_login_success_total", Help: "Successful logins."},
	{ID: gatekeeper.MetricLoginFailure, Name: "gatekeeper_login_failure_total", Help: "Rejected logins."},
	{ID: gatekeeper.MetricRegisterSuccess, Name: "gatekeeper_register_success_total", Help: "Accounts created."},
	{ID: gatekeeper.MetricRegisterDuplicate, Name: "gatekeeper_register_duplicate_total", Help: "Registrations rejected because the identifier is taken."},
	{ID: gatekeeper.MetricRegisterInvalid, Name: "gatekeeper_register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: gatekeeper.MetricAuthenticateSuccess, Name: "gatekeeper_authenticate_success_total", Help: "Access tokens accepted."},
	{ID: gatekeeper.MetricAuthenticateFailure, Name: "gatekeeper_authenticate_failure_total", Help: "Access tokens rejected."},
	{ID: gatekeeper.MetricBlacklistHit, Name: "gatekeeper_blacklist_hit_total", Help: "Requests carrying a logged-out token."},
	{ID: gatekeeper.MetricRefreshSuccess, Name: "gatekeeper_refresh_success_total", Help: "Access tokens minted from a refresh token."},
	{ID: gatekeeper.MetricRefreshFailure, Name: "gatekeeper_refresh_failure_total", Help: "Refresh attempts rejected."},
	{ID: gatekeeper.MetricLogout, Name: "gatekeeper_logout_total", Help: "Logout calls."},
	{ID: gatekeeper.MetricRateLimitHit, Name: "gatekeeper_rate_limit_hit_total", Help: "Requests over their class ceiling."},
	{ID: gatekeeper.MetricRateLimitFailOpen, Name: "gatekeeper_rate_limit_fail_open_total", Help: "Requests admitted because the counter store was unreachable."},
	{ID: gatekeeper.MetricPasswordRehash, Name: "gatekeeper_password_rehash_total", Help: "Stored hashes upgraded after a successful login."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: gatekeeper.MetricValidateLatency, Name: "gatekeeper_validate_latency_seconds", Help: "Access token validation latency."},
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const (
	AuditDroppedName = "gatekeeper_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher queue was full."
)

// HistogramUpperBounds are the bucket limits in seconds. The final bucket is +Inf
// and is not listed.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, including +Inf, for backends that
// cannot carry an le label.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the eight engine buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals. The last
// element is the sample count.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
