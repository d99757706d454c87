package change

// Change is the classification of a before/after document pair.
type Change int

const (
	None Change = iota
	Created
	Deleted
	Updated
	Replacement
)

func (c Change) String() string {
	switch c {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Updated:
		return "updated"
	case Replacement:
		return "replacement"
	default:
		return "none"
	}
}

// Classify maps a mutation onto a Change. relevantChanged only matters when the
// document exists on both sides; replacement turns a creation or update into
// Replacement.
func Classify(beforeExists, afterExists, relevantChanged, replacement bool) Change {
	switch {
	case !beforeExists && !afterExists:
		return None
	case !beforeExists:
		if replacement {
			return Replacement
		}
		return Created
	case !afterExists:
		return Deleted
	case !relevantChanged:
		return None
	case replacement:
		return Replacement
	default:
		return Updated
	}
}
