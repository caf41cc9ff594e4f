package engine

// InvocationQuota bounds the number of replay invocations of one module.
//
// A construction whose decision tree never closes (a decision inside an
// unbounded loop, or a body whose decisions depend on something other than
// the recorded outcomes) would otherwise re-run forever. The quota is
// checked before every invocation.
type InvocationQuota struct {
	max     int
	current int
}

// NewInvocationQuota creates a quota with the given limit. A limit <= 0
// disables the bound.
func NewInvocationQuota(max int) *InvocationQuota {
	return &InvocationQuota{max: max}
}

// Check counts one invocation of module and fails with a
// NON_DETERMINISTIC_CONSTRUCTION error once the limit is exceeded.
func (q *InvocationQuota) Check(module string) error {
	q.current++
	if q.max > 0 && q.current > q.max {
		return NewNonDeterministicError(module, "invocations", q.current, q.max)
	}
	return nil
}
