package retention

// WithClockForTest exposes the unexported withClock option to external test
// packages.
var WithClockForTest = withClock
