package bencode

import (
	"sort"
	"strconv"
)

// Encode returns the canonical encoding of v. Dictionary keys are written in
// ascending byte order no matter how they were inserted.
func Encode(v Value) []byte {
	return AppendEncode(nil, v)
}

// AppendEncode appends the canonical encoding of v to dst
func AppendEncode(dst []byte, v Value) []byte {
	switch v := v.(type) {
	case Integer:
		dst = append(dst, 'i')
		dst = strconv.AppendInt(dst, int64(v), 10)
		return append(dst, 'e')
	case String:
		return appendString(dst, v)
	case List:
		dst = append(dst, 'l')
		for _, item := range v {
			dst = AppendEncode(dst, item)
		}
		return append(dst, 'e')
	case Dict:
		entries := make([]Entry, len(v))
		copy(entries, v)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Key < entries[j].Key
		})

		dst = append(dst, 'd')
		for _, e := range entries {
			dst = appendString(dst, []byte(e.Key))
			dst = AppendEncode(dst, e.Value)
		}
		return append(dst, 'e')
	}
	return dst
}

func appendString(dst []byte, s []byte) []byte {
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, ':')
	return append(dst, s...)
}
