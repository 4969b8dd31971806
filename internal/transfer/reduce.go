package transfer

// Reduce folds the outcome of one unit into the running result of a split
// item and returns whichever of the two is worse. A nil current is the
// empty fold and yields next unchanged.
//
// Units of equal status are ordered by index, so the fold is commutative
// and associative over the units of one item: any completion order
// produces the same result, including which error is reported.
func Reduce(current *UnitResult, next UnitResult) UnitResult {
	if current == nil {
		return next
	}
	if worse(next, *current) {
		return next
	}
	return *current
}

func worse(a, b UnitResult) bool {
	if c := compareStatus(&a.Status, &b.Status); c != 0 {
		return c < 0
	}
	return a.Unit.Index < b.Unit.Index
}
