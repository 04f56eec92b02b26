// Package function implements the Function Calculator:
// derivation of the function map from a law's relationship arrays, with
// distinct immediate/deferred/dynamic timing contracts.
package function

const (
	Making        = "Making"
	Commencing    = "Commencing"
	Enacting      = "Enacting"
	EnactingMaker = "Enacting Maker"
	Amending      = "Amending"
	AmendingMaker = "Amending Maker"
	Revoking      = "Revoking"
	RevokingMaker = "Revoking Maker"
)

// IsMakingLookup resolves whether each canonical law name is stored with
// is_making set (a law that creates substantive duties). Repository implements
// this as a single batched query.
type IsMakingLookup func(names []string) map[string]bool

// Record is the minimal shape FunctionCalculator needs from an LRT row.
type Record struct {
	Name         string
	IsMaking     bool
	IsCommencing bool
	Enacting     []string
	Amending     []string
	Rescinding   []string
}

// Immediate computes the Making/Commencing keys from the record alone.
func Immediate(r Record) map[string]bool {
	out := map[string]bool{}
	if r.IsMaking {
		out[Making] = true
	}
	if r.IsCommencing {
		out[Commencing] = true
	}
	return out
}

// Deferred computes the Amending/Amending Maker/Revoking/Revoking Maker
// keys, batching the is_making lookup across every record passed in a
// single call.
func Deferred(records []Record, lookup IsMakingLookup) map[string]map[string]bool {
	union := map[string]bool{}
	for _, r := range records {
		for _, name := range r.Amending {
			union[name] = true
		}
		for _, name := range r.Rescinding {
			union[name] = true
		}
	}
	names := make([]string, 0, len(union))
	for name := range union {
		names = append(names, name)
	}
	isMaking := lookup(names)

	out := make(map[string]map[string]bool, len(records))
	for _, r := range records {
		fn := map[string]bool{}
		setFromTargets(fn, r.Amending, isMaking, Amending, AmendingMaker)
		setFromTargets(fn, r.Rescinding, isMaking, Revoking, RevokingMaker)
		out[r.Name] = fn
	}
	return out
}

// ForEnacting computes the Enacting/Enacting Maker keys for one record's
// enacting array, given the same batched lookup shape as Deferred.
func ForEnacting(r Record, lookup IsMakingLookup) map[string]bool {
	isMaking := lookup(r.Enacting)
	fn := map[string]bool{}
	setFromTargets(fn, r.Enacting, isMaking, Enacting, EnactingMaker)
	return fn
}

func setFromTargets(fn map[string]bool, targets []string, isMaking map[string]bool, plainKey, makerKey string) {
	for _, name := range targets {
		if isMaking[name] {
			fn[makerKey] = true
		} else {
			fn[plainKey] = true
		}
	}
}

// MonotonicUnion merges addition into existing without ever clearing a
// previously-set key — the rule governing dynamic enacting updates.
// A nil existing is treated as empty.
func MonotonicUnion(existing, addition map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k, v := range existing {
		if v {
			out[k] = true
		}
	}
	for k, v := range addition {
		if v {
			out[k] = true
		}
	}
	return out
}

// Merge combines Immediate and a Deferred/Enacting contribution into the
// persisted map, returning nil when the result is empty so callers
// persist null rather than an empty object.
func Merge(maps ...map[string]bool) map[string]bool {
	out := map[string]bool{}
	for _, m := range maps {
		for k, v := range m {
			if v {
				out[k] = true
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
