package reachability

import "context"

// FakeChecker is a test double for Checker: it returns a fixed verdict
// per address, defaulting to Default for addresses not listed.
type FakeChecker struct {
	Verdicts map[string]bool
	Default  bool
}

// NewFakeChecker returns a FakeChecker that reports addresses reachable
// unless overridden.
func NewFakeChecker() *FakeChecker {
	return &FakeChecker{Verdicts: make(map[string]bool), Default: true}
}

func (f *FakeChecker) Check(_ context.Context, addr string) bool {
	if v, ok := f.Verdicts[addr]; ok {
		return v
	}
	return f.Default
}
