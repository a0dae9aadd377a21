package flipmap

// Observation distinguishes why a diff entry has its value. A diff of 0 is
// either "no shift" (Both) or "never set anywhere" (Unobserved).
type Observation uint8

const (
	Unobserved Observation = iota
	PreOnly
	PostOnly
	Both
)

func (o Observation) String() string {
	switch o {
	case PreOnly:
		return "pre_only"
	case PostOnly:
		return "post_only"
	case Both:
		return "both"
	default:
		return "unobserved"
	}
}

// Classify returns the observation state of one pre/post pair.
func Classify(pre, post int32) Observation {
	switch {
	case pre != Unset && post != Unset:
		return Both
	case pre != Unset:
		return PreOnly
	case post != Unset:
		return PostOnly
	default:
		return Unobserved
	}
}

// Tally counts observation states across a pre/post matrix pair.
type Tally struct {
	Unobserved int
	PreOnly    int
	PostOnly   int
	Both       int
}

// Observe tallies every entry of pre and post, which must share a shape.
func Observe(pre, post *Matrix) (Tally, error) {
	var t Tally
	if !pre.SameShape(post) {
		return t, shapeError(pre, post)
	}
	for i := range pre.Values {
		switch Classify(pre.Values[i], post.Values[i]) {
		case Both:
			t.Both++
		case PreOnly:
			t.PreOnly++
		case PostOnly:
			t.PostOnly++
		default:
			t.Unobserved++
		}
	}
	return t, nil
}
