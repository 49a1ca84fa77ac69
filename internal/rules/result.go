package rules

import "fmt"

type resultKind int

const (
	kindOk resultKind = iota
	kindNotApplicable
	kindFailed
)

// Result is the outcome of resolving one property.
//
// Ok carries a value, which may be a defined zero such as 0 or an empty list.
// NotApplicable is a defined absence: the rule compares against nothing.
// Failed means resolution broke and the rule is indeterminate.
type Result struct {
	kind  resultKind
	value any
}

// Ok wraps a resolved value
func Ok(v any) Result {
	return Result{kind: kindOk, value: v}
}

// NotApplicable reports that the property has no value for the item
func NotApplicable() Result {
	return Result{kind: kindNotApplicable}
}

// Failed reports that resolution could not complete
func Failed() Result {
	return Result{kind: kindFailed}
}

// Value returns the resolved value and true for Ok results
func (r Result) Value() (any, bool) {
	return r.value, r.kind == kindOk
}

func (r Result) IsOk() bool            { return r.kind == kindOk }
func (r Result) IsNotApplicable() bool { return r.kind == kindNotApplicable }
func (r Result) IsFailed() bool        { return r.kind == kindFailed }

func (r Result) String() string {
	switch r.kind {
	case kindOk:
		return fmt.Sprintf("%v", r.value)
	case kindNotApplicable:
		return "n/a"
	default:
		return "failed"
	}
}

// okOrNA returns NotApplicable when ok is false
func okOrNA[T any](v T, ok bool) Result {
	if !ok {
		return NotApplicable()
	}
	return Ok(v)
}
