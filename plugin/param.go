package plugin

// ParamKind tags the concrete type carried by a ParamValue.
type ParamKind int

const (
	KindFloat ParamKind = iota
	KindInt
	KindBool
	KindString
)

// ParamValue is a tagged union of the four parameter types a plugin can
// declare. Only the field matching Kind is meaningful; the zero value of
// the others is left unset.
type ParamValue struct {
	Kind ParamKind
	F    float64
	I    int64
	B    bool
	S    string
}

func Float(v float64) ParamValue { return ParamValue{Kind: KindFloat, F: v} }
func Int(v int64) ParamValue     { return ParamValue{Kind: KindInt, I: v} }
func Bool(v bool) ParamValue     { return ParamValue{Kind: KindBool, B: v} }
func String(v string) ParamValue { return ParamValue{Kind: KindString, S: v} }

// SameKind reports whether v and other carry the same ParamKind, which is
// the check set_param uses to reject type mismatches.
func (v ParamValue) SameKind(other ParamValue) bool {
	return v.Kind == other.Kind
}

// Descriptor names a parameter, its type, and the metadata a UI needs to
// render an editable control for it. Names are arbitrary text, including
// non-ASCII; nothing in this package assumes ASCII.
type Descriptor struct {
	Name    string
	Kind    ParamKind
	Default ParamValue

	// Min, Max, Step apply to KindFloat and KindInt only; a zero Step means
	// "continuous" (no UI step hint).
	Min, Max, Step float64

	// Options lists the valid values for an enum-like KindString parameter.
	// Empty means "free text".
	Options []string
}

// Clamp restricts v to the descriptor's declared [Min, Max] range. Bool and
// string values, and any value when Min and Max are both zero (no range
// declared), pass through unchanged.
func (d Descriptor) Clamp(v ParamValue) ParamValue {
	if d.Min == 0 && d.Max == 0 {
		return v
	}
	switch v.Kind {
	case KindFloat:
		if v.F < d.Min {
			v.F = d.Min
		}
		if v.F > d.Max {
			v.F = d.Max
		}
	case KindInt:
		if float64(v.I) < d.Min {
			v.I = int64(d.Min)
		}
		if float64(v.I) > d.Max {
			v.I = int64(d.Max)
		}
	}
	return v
}
