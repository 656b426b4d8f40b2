package weather

import "sort"

// EpochOf derives the merge key of one raw element: the explicit epoch
// field, else obsTimeUtc. Non-objects have no key.
func EpochOf(el any) (int64, bool) {
	obs, ok := el.(map[string]any)
	if !ok {
		return 0, false
	}
	return deriveEpoch(obs)
}

// Merge appends to historical the live elements strictly newer than the
// newest historical epoch and returns the result ordered by epoch.
//
// Live elements without a derivable epoch are dropped, as are repeated live
// epochs. The result is stable for equal keys, so applying Merge again with the
// same live batch returns the same list.
func Merge(historical, live []any) []any {
	var (
		last     int64
		haveLast bool
	)
	for _, el := range historical {
		if e, ok := EpochOf(el); ok && (!haveLast || e > last) {
			last, haveLast = e, true
		}
	}

	type keyed struct {
		el    any
		epoch int64
		ok    bool
	}

	out := make([]keyed, 0, len(historical)+len(live))
	for _, el := range historical {
		e, ok := EpochOf(el)
		out = append(out, keyed{el: el, epoch: e, ok: ok})
	}

	seen := make(map[int64]struct{})
	for _, el := range live {
		e, ok := EpochOf(el)
		if !ok {
			continue
		}
		if haveLast && e <= last {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, keyed{el: el, epoch: e, ok: true})
	}

	// Keyed elements first, ascending; unkeyed historical elements keep their relative order after them.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ok && b.ok:
			return a.epoch < b.epoch
		default:
			return a.ok && !b.ok
		}
	})

	merged := make([]any, len(out))
	for i, k := range out {
		merged[i] = k.el
	}
	return merged
}

// MergePayload merges the live payload into the historical one while keeping
// the historical shape: a bare array stays an array and an object keeps its
// other keys with the list stored back under its original key.
func MergePayload(historical, live any) any {
	histList, key := observationList(historical)
	merged := Merge(histList, ObservationList(live))

	switch h := historical.(type) {
	case []any:
		return merged
	case map[string]any:
		if key == "" {
			key = "observations"
		}
		out := make(map[string]any, len(h)+1)
		for k, v := range h {
			out[k] = v
		}
		out[key] = merged
		return out
	default:
		return map[string]any{"observations": merged}
	}
}
