package automod

// Violation is one content rule finding on a single message.
type Violation struct {
	// stable rule identifier ("profanity", "spam", "mass_mention", ...)
	Kind string
	// contribution to the message's total severity
	Severity int
	// short human-readable finding, shown in the mod log
	Detail string
}

// Effects is the mutable container rules write into while a message is being
// processed. The engine reads it once after all rules have run; rules never
// act on the platform directly.
type Effects struct {
	Violations []Violation
}

func (e *Effects) AddViolation(kind string, severity int, detail string) {
	e.Violations = append(e.Violations, Violation{Kind: kind, Severity: severity, Detail: detail})
}

// TotalSeverity sums the severity of all recorded violations.
func (e *Effects) TotalSeverity() int {
	total := 0
	for _, v := range e.Violations {
		total += v.Severity
	}
	return total
}

// Kinds returns the violated rule identifiers in recording order.
func (e *Effects) Kinds() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Kind
	}
	return out
}
