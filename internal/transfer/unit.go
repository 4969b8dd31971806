package transfer

import (
	"s3transfer/internal/storage"
)

// UnitKind tags the shape of a Unit.
type UnitKind int

const (
	// WholeUnit transfers the entire item.
	WholeUnit UnitKind = iota
	// RangeUnit downloads one byte range of the item.
	RangeUnit
	// PartUnit uploads one byte range of the item as a separate part object.
	PartUnit
)

func (k UnitKind) String() string {
	switch k {
	case WholeUnit:
		return "whole"
	case RangeUnit:
		return "range"
	case PartUnit:
		return "part"
	}
	return "unknown"
}

// Unit is one schedulable piece of an item. Start and End delimit the
// half-open byte range for RangeUnit and PartUnit; Index numbers ranges
// and parts from zero in byte order.
type Unit struct {
	Kind  UnitKind
	Index int
	Start int64
	End   int64
}

func (u Unit) Len() int64 {
	return u.End - u.Start
}

func (u Unit) storageRange() *storage.Range {
	if u.Kind == WholeUnit {
		return nil
	}
	return &storage.Range{Start: u.Start, End: u.End}
}

// Item describes one logical transfer. For uploads Source is the local
// file and Object the derived target; for downloads Object is the source
// and Destination the local path.
type Item struct {
	Source      string           `json:"source,omitempty"`
	Object      storage.ObjectID `json:"object"`
	Destination string           `json:"destination,omitempty"`
	// Size is the byte length when known, -1 otherwise.
	Size int64 `json:"size"`
}

// Result is the item-level outcome reported to callers.
//
// Output is set only when Status is Success: the uploaded object for
// uploads, the destination path for downloads. Err is set only for the
// failure statuses, and optionally for Skipped as a diagnostic.
type Result struct {
	Item       Item
	Status     Status
	Object     *storage.ObjectID
	Path       string
	Generation string
	Err        error
}

// Output returns the output reference as a string, or "" when absent.
func (r Result) Output() string {
	switch {
	case r.Object != nil:
		return r.Object.String()
	case r.Path != "":
		return r.Path
	}
	return ""
}

// UnitResult is the outcome of one Unit.
type UnitResult struct {
	Result
	Unit Unit
}

func success(item Item, unit Unit) UnitResult {
	return UnitResult{Result: Result{Item: item, Status: Success}, Unit: unit}
}

func failure(item Item, unit Unit, status Status, err error) UnitResult {
	return UnitResult{Result: Result{Item: item, Status: status, Err: err}, Unit: unit}
}

// computeRanges splits size bytes into consecutive chunks of at most
// chunk bytes. An object no larger than chunk yields a single range.
func computeRanges(size, chunk int64) []storage.Range {
	if size <= chunk {
		return []storage.Range{{Start: 0, End: size}}
	}
	ranges := make([]storage.Range, 0, (size+chunk-1)/chunk)
	for start := int64(0); start < size; start += chunk {
		ranges = append(ranges, storage.Range{Start: start, End: min(start+chunk, size)})
	}
	return ranges
}

func splitUnits(kind UnitKind, size, chunk int64) []Unit {
	ranges := computeRanges(size, chunk)
	units := make([]Unit, len(ranges))
	for i, r := range ranges {
		units[i] = Unit{Kind: kind, Index: i, Start: r.Start, End: r.End}
	}
	return units
}
