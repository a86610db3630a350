package payload

// Normalize enforces the state-payload invariants on an outbound
// /json/state object and returns a new structure; the input is never
// mutated, since callers reuse payload templates.
//
// For every entry of the seg key (array or single object):
//   - legacy short keys gp/sp are rewritten to grp/spc when the
//     canonical key is absent
//   - entries carrying fx (a full pattern application) get defaults
//     grp=1, spc=0, of=0 for whichever of those keys are missing
//   - entries without fx are slider nudges and pass through unchanged
//
// The device only updates fields present in a write, so omitting
// grouping/spacing/offset after a pattern switch silently carries the
// previous pattern's values over.
func Normalize(p map[string]interface{}) map[string]interface{} {
	if p == nil {
		return nil
	}
	out := deepCopyMap(p)
	switch seg := out["seg"].(type) {
	case []interface{}:
		for i, e := range seg {
			if m, ok := e.(map[string]interface{}); ok {
				seg[i] = normalizeSegment(m)
			}
		}
	case map[string]interface{}:
		out["seg"] = normalizeSegment(seg)
	}
	return out
}

func normalizeSegment(seg map[string]interface{}) map[string]interface{} {
	if _, ok := seg["grp"]; !ok {
		if v, legacy := seg["gp"]; legacy {
			seg["grp"] = v
			delete(seg, "gp")
		}
	}
	if _, ok := seg["spc"]; !ok {
		if v, legacy := seg["sp"]; legacy {
			seg["spc"] = v
			delete(seg, "sp")
		}
	}

	if _, hasFx := seg["fx"]; !hasFx {
		return seg
	}
	if _, ok := seg["grp"]; !ok {
		seg["grp"] = 1
	}
	if _, ok := seg["spc"]; !ok {
		seg["spc"] = 0
	}
	if _, ok := seg["of"]; !ok {
		seg["of"] = 0
	}
	return seg
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
