package graph

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexNum accepts JSON numbers, numeric strings and null. Anything that
// does not parse to a finite number reads as 0.
type flexNum float64

func (n *flexNum) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*n = 0
		return nil
	}
	switch t := v.(type) {
	case float64:
		*n = flexNum(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = flexNum(f)
	default:
		*n = 0
	}
	return nil
}

func (n flexNum) value() float64 {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// flexString accepts JSON strings and numbers; numbers keep their literal
// text so numeric ids still identify a node. Any other value reads as "".
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*s = ""
		return nil
	}
	switch t := v.(type) {
	case string:
		*s = flexString(t)
	case float64:
		*s = flexString(strings.TrimSpace(string(b)))
	default:
		*s = ""
	}
	return nil
}

// lenient decodes a nested object, leaving v nil when the value is null or
// not an object of the expected shape.
type lenient[T any] struct {
	v *T
}

func (l *lenient[T]) UnmarshalJSON(b []byte) error {
	var t T
	if err := json.Unmarshal(b, &t); err != nil || string(b) == "null" {
		l.v = nil
		return nil
	}
	l.v = &t
	return nil
}

// itemList decodes an array of flow items one element at a time, skipping
// elements that are not objects. A non-array value reads as absent.
type itemList []rawItem

func (l *itemList) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil || raws == nil {
		*l = nil
		return nil
	}
	out := make(itemList, 0, len(raws))
	for _, raw := range raws {
		var it rawItem
		if err := json.Unmarshal(raw, &it); err != nil {
			continue
		}
		out = append(out, it)
	}
	*l = out
	return nil
}

// rawList holds the elements of a top-level node or edge array. A non-array
// value reads as empty.
type rawList []json.RawMessage

func (l *rawList) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		raws = nil
	}
	*l = raws
	return nil
}
