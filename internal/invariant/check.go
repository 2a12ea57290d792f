package invariant

// Check is an immutable, named and severity-tagged predicate. The With*
// methods return modified copies.
type Check struct {
	name        string
	severity    Severity
	description string
	predicate   Predicate
}

// New builds a check. An unset severity defaults to SeverityError.
func New(name string, severity Severity, predicate Predicate) Check {
	if severity == 0 {
		severity = SeverityError
	}
	return Check{name: name, severity: severity, predicate: predicate}
}

func (c Check) Name() string         { return c.name }
func (c Check) Severity() Severity   { return c.severity }
func (c Check) Description() string  { return c.description }
func (c Check) Predicate() Predicate { return c.predicate }

// NeedsHistory reports whether the checker has to keep previous states for c.
func (c Check) NeedsHistory() bool {
	if h, ok := c.predicate.(HistoryTracker); ok {
		return h.NeedsHistory()
	}
	return true
}

func (c Check) WithName(name string) Check {
	c.name = name
	return c
}

func (c Check) WithSeverity(s Severity) Check {
	c.severity = s
	return c
}

func (c Check) WithDescription(d string) Check {
	c.description = d
	return c
}

func (c Check) AsCheck() Check { return c }

// Checkable is anything that can be turned into a Check: a Check itself or
// a bare Stateless/Stateful function.
type Checkable interface {
	AsCheck() Check
}

// Definition is the serializable description of a check.
type Definition struct {
	Name        string   `json:"name"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
	Stateful    bool     `json:"stateful"`
}

func (c Check) Definition() Definition {
	return Definition{
		Name:        c.name,
		Severity:    c.severity,
		Description: c.description,
		Stateful:    c.NeedsHistory(),
	}
}
