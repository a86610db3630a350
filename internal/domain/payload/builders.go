package payload

import "lumina-core/internal/domain/model"

// Preset id range enforced at the contract boundary; out-of-range ids
// fail before any network traffic.
const (
	MinPresetID = 1
	MaxPresetID = 250
)

// ValidPresetID reports whether id is inside the device's preset slots.
func ValidPresetID(id int) bool {
	return id >= MinPresetID && id <= MaxPresetID
}

// BuildStateUpdate merges every provided field of one logical update
// into a single /json/state body. The seg key is omitted entirely when
// the update has no per-segment fields: an empty segment list would
// reset unrelated parameters on the device.
func BuildStateUpdate(u model.StateUpdate, rgbw bool) map[string]interface{} {
	body := map[string]interface{}{}
	if u.On != nil {
		body["on"] = *u.On
	}
	if u.Brightness != nil {
		body["bri"] = *u.Brightness
	}
	if !u.HasSegmentFields() {
		return body
	}

	seg := map[string]interface{}{"id": u.SegmentID}
	if u.Speed != nil {
		seg["sx"] = *u.Speed
	}
	if u.Color != nil {
		c := RGBToRGBW(u.Color.R, u.Color.G, u.Color.B, u.White, u.ForceZeroWhite)
		col := c.Slice(rgbw)
		seg["col"] = []interface{}{col}
	}
	body["seg"] = []interface{}{seg}
	return body
}

// BuildSegmentRename produces the minimal body renaming one segment.
func BuildSegmentRename(id int, name string) map[string]interface{} {
	return map[string]interface{}{
		"seg": []interface{}{
			map[string]interface{}{"id": id, "n": name},
		},
	}
}

// BuildSegmentApply fans one segment-update object out to each target
// id, normalized so pattern applications carry their grouping defaults.
func BuildSegmentApply(ids []int, seg map[string]interface{}) map[string]interface{} {
	entries := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		e := deepCopyMap(seg)
		e["id"] = id
		entries = append(entries, e)
	}
	return Normalize(map[string]interface{}{"seg": entries})
}

// BuildPresetSave attaches the psave directive (and optional name) to a
// state snapshot so the device stores it in one write.
func BuildPresetSave(id int, state map[string]interface{}, name string) map[string]interface{} {
	body := deepCopyMap(state)
	body["psave"] = id
	if name != "" {
		body["n"] = name
	}
	return body
}

// BuildPresetLoad recalls a stored preset.
func BuildPresetLoad(id int) map[string]interface{} {
	return map[string]interface{}{"ps": id}
}

// BuildSyncSenderConfig produces the /json/cfg fragment enabling or
// disabling UDP sync broadcast from this controller.
func BuildSyncSenderConfig(enabled bool) map[string]interface{} {
	return map[string]interface{}{
		"if": map[string]interface{}{
			"sync": map[string]interface{}{
				"send": map[string]interface{}{
					"en":  enabled,
					"grp": 1,
				},
			},
		},
	}
}

// BuildSyncReceiverConfig produces the /json/cfg fragment controlling
// whether this controller follows UDP sync broadcasts.
func BuildSyncReceiverConfig(enabled bool) map[string]interface{} {
	return map[string]interface{}{
		"if": map[string]interface{}{
			"sync": map[string]interface{}{
				"recv": map[string]interface{}{
					"en":  enabled,
					"grp": 1,
				},
			},
		},
	}
}
