package repair

// Kind classifies a row by its field count relative to the header.
type Kind int

const (
	Exact Kind = iota
	Short
	Overflow
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Short:
		return "short"
	case Overflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Classification is the outcome of comparing a row's width to the header.
type Classification struct {
	Kind Kind
	// Overflow is N-H for overflow rows.
	Overflow int
	// Missing is H-N for short rows.
	Missing int
}

// Classify compares the observed field count n with the header width.
func Classify(n, width int) Classification {
	switch {
	case n == width:
		return Classification{Kind: Exact}
	case n < width:
		return Classification{Kind: Short, Missing: width - n}
	default:
		return Classification{Kind: Overflow, Overflow: n - width}
	}
}

// Pad appends empty fields until the row is width long. Rows already at or
// above width are copied unchanged.
func Pad(fields []string, width int) []string {
	n := len(fields)
	if n < width {
		n = width
	}
	out := make([]string, n)
	copy(out, fields)
	return out
}
