package collection

// Helpers extracting typed values from a document map in its canonical
// post-JSON-round-trip shape: numbers are float64, arrays are []any, pairs
// are []any of two float64s. Every document in c.docs has this shape
// (Add re-decodes through encodeDoc/decodeDoc before caching) so the write
// path, the read path, and recovery all see the same representation.

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asStringArray(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func asPoint(v any) (lat, lng float64, ok bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return 0, 0, false
	}
	lat, ok1 := asFloat64(arr[0])
	lng, ok2 := asFloat64(arr[1])
	return lat, lng, ok1 && ok2
}

func asPoints(v any) (pts [][2]float64, ok bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([][2]float64, 0, len(arr))
	for _, e := range arr {
		lat, lng, ok := asPoint(e)
		if !ok {
			return nil, false
		}
		out = append(out, [2]float64{lat, lng})
	}
	return out, true
}
