package model

// MaxSegmentLEDs caps the LED count a single segment can report. WLED
// builds top out well below this; the cap only guards against absurd
// start/stop pairs coming off the wire.
const MaxSegmentLEDs = 65535

// MaxSegmentColors is the number of color slots a segment carries
// (primary, secondary, tertiary).
const MaxSegmentColors = 3

type Color struct {
	R int
	G int
	B int
	W int
}

// Slice returns the color as the wire-level channel array, [r,g,b] or
// [r,g,b,w] depending on rgbw.
func (c Color) Slice(rgbw bool) []int {
	if rgbw {
		return []int{c.R, c.G, c.B, c.W}
	}
	return []int{c.R, c.G, c.B}
}

// Segment is one addressable range of a strip. Start/Stop is a half-open
// LED index range.
type Segment struct {
	ID        int
	Name      string
	Start     int
	Stop      int
	Speed     int
	Intensity int
	Colors    []Color
}

// LEDCount reports the number of LEDs the segment spans, clamped to
// [0, MaxSegmentLEDs]. An inverted range counts as zero.
func (s Segment) LEDCount() int {
	n := s.Stop - s.Start
	if n < 0 {
		return 0
	}
	if n > MaxSegmentLEDs {
		return MaxSegmentLEDs
	}
	return n
}

// DeviceState is the last known state of one controller. Each transport
// keeps its own copy; views are never shared across transports.
type DeviceState struct {
	On         bool
	Brightness int
	Segments   []Segment
}

// DeviceInfo is the subset of /json/info this core cares about.
type DeviceInfo struct {
	LEDCount int
	RGBW     bool
}

// StateUpdate collects the optional fields of a single logical state
// write. Nil pointers mean "leave unchanged"; everything provided is
// merged into one payload so the device applies it atomically.
type StateUpdate struct {
	On             *bool
	Brightness     *int
	Speed          *int
	Color          *Color
	White          *int
	ForceZeroWhite bool
	SegmentID      int
}

// HasSegmentFields reports whether the update touches any per-segment
// parameter. When false the seg key must be omitted from the payload
// entirely; an empty segment list would reset unrelated parameters.
func (u StateUpdate) HasSegmentFields() bool {
	return u.Speed != nil || u.Color != nil
}

// StateFromMap builds a DeviceState from a decoded /json/state object.
// Returns nil when the map carries none of the expected keys.
func StateFromMap(m map[string]interface{}) *DeviceState {
	if m == nil {
		return nil
	}
	st := &DeviceState{}
	found := false
	if on, ok := m["on"].(bool); ok {
		st.On = on
		found = true
	}
	if bri, ok := toInt(m["bri"]); ok {
		st.Brightness = bri
		found = true
	}
	if seg, ok := m["seg"]; ok {
		st.Segments = SegmentsFromValue(seg)
		found = true
	}
	if !found {
		return nil
	}
	return st
}

// SegmentsFromValue parses the seg key of a state object. WLED emits
// either a list of segment objects or a single segment object depending
// on build, so both shapes are accepted.
func SegmentsFromValue(v interface{}) []Segment {
	switch t := v.(type) {
	case []interface{}:
		segs := make([]Segment, 0, len(t))
		for _, e := range t {
			if m, ok := e.(map[string]interface{}); ok {
				segs = append(segs, segmentFromMap(m))
			}
		}
		return segs
	case map[string]interface{}:
		return []Segment{segmentFromMap(t)}
	default:
		return nil
	}
}

func segmentFromMap(m map[string]interface{}) Segment {
	s := Segment{}
	if id, ok := toInt(m["id"]); ok {
		s.ID = id
	}
	if n, ok := m["n"].(string); ok {
		s.Name = n
	}
	if v, ok := toInt(m["start"]); ok {
		s.Start = v
	}
	if v, ok := toInt(m["stop"]); ok {
		s.Stop = v
	}
	if v, ok := toInt(m["sx"]); ok {
		s.Speed = v
	}
	if v, ok := toInt(m["ix"]); ok {
		s.Intensity = v
	}
	if cols, ok := m["col"].([]interface{}); ok {
		for i, cv := range cols {
			if i >= MaxSegmentColors {
				break
			}
			ch, ok := cv.([]interface{})
			if !ok {
				continue
			}
			var c Color
			if len(ch) > 0 {
				c.R, _ = toInt(ch[0])
			}
			if len(ch) > 1 {
				c.G, _ = toInt(ch[1])
			}
			if len(ch) > 2 {
				c.B, _ = toInt(ch[2])
			}
			if len(ch) > 3 {
				c.W, _ = toInt(ch[3])
			}
			s.Colors = append(s.Colors, c)
		}
	}
	return s
}

// InfoFromMap extracts the leds block of a /json/info object.
func InfoFromMap(m map[string]interface{}) *DeviceInfo {
	leds, ok := m["leds"].(map[string]interface{})
	if !ok {
		return nil
	}
	info := &DeviceInfo{}
	if v, ok := toInt(leds["count"]); ok {
		info.LEDCount = v
	}
	if v, ok := leds["rgbw"].(bool); ok {
		info.RGBW = v
	}
	return info
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
