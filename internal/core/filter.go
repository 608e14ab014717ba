package core

// DateRange is an inclusive calendar range.
type DateRange struct {
	Start Date
	End   Date
}

// Filter restricts the transactions an operation considers. Every set field is a
// predicate; predicates combine with AND. The zero Filter matches everything.
type Filter struct {
	Range    *DateRange
	Since    *Date
	Until    *Date
	Kind     Kind
	Category string
}

// All matches every transaction.
func All() Filter {
	return Filter{}
}

// Between restricts to [start, end].
func Between(start, end Date) Filter {
	return Filter{Range: &DateRange{Start: start, End: end}}
}

// WithKind returns a copy of f restricted to kind k.
func (f Filter) WithKind(k Kind) Filter {
	f.Kind = k
	return f
}

// WithCategory returns a copy of f restricted to an exact category name.
func (f Filter) WithCategory(name string) Filter {
	f.Category = name
	return f
}

// WithSince returns a copy of f restricted to dates on or after d.
func (f Filter) WithSince(d Date) Filter {
	f.Since = &d
	return f
}

// WithUntil returns a copy of f restricted to dates on or before d.
func (f Filter) WithUntil(d Date) Filter {
	f.Until = &d
	return f
}

// Inverted reports whether the range ends before it starts.
func (r DateRange) Inverted() bool {
	return r.End.Before(r.Start.Time)
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// Empty reports whether f can never match, i.e. it carries an inverted range.
func (f Filter) Empty() bool {
	return f.Range != nil && f.Range.Inverted()
}

// Match reports whether t satisfies every predicate of f.
func (f Filter) Match(t Transaction) bool {
	if f.Range != nil && !f.Range.Contains(t.Date) {
		return false
	}
	if f.Since != nil && t.Date.Before(f.Since.Time) {
		return false
	}
	if f.Until != nil && t.Date.After(f.Until.Time) {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	return true
}
