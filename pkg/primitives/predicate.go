package primitives

// Predicate is a comparison operator shared by field comparisons, filters
// and join predicates.
type Predicate int

const (
	Equals Predicate = iota
	NotEqual
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
	Like
)

func (p Predicate) String() string {
	switch p {
	case Equals:
		return "="
	case NotEqual:
		return "<>"
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case Like:
		return "LIKE"
	default:
		return "UNKNOWN"
	}
}
