package bencode

import (
	"strconv"

	"github.com/pkg/errors"
)

var (
	ErrInvalidTag          = errors.New("invalid bencode tag")
	ErrMalformedInteger    = errors.New("malformed integer")
	ErrMalformedString     = errors.New("malformed string")
	ErrMalformedList       = errors.New("malformed list")
	ErrMalformedDictionary = errors.New("malformed dictionary")
	ErrStructureTooDeep    = errors.New("structure too deep")
)

// DefaultMaxDepth is the nesting limit used by the package level Decode
const DefaultMaxDepth = 512

// Decoder decodes bencoded values out of a byte slice
type Decoder struct {
	// MaxDepth is the deepest list/dictionary nesting accepted, <= 0 uses DefaultMaxDepth
	MaxDepth int
}

// Decode decodes the value starting at buf[offset] and returns it together with
// the offset right after it.
func Decode(buf []byte, offset int) (Value, int, error) {
	return Decoder{}.Decode(buf, offset)
}

// Decode decodes the value starting at buf[offset] and returns it together with
// the offset right after it.
func (d Decoder) Decode(buf []byte, offset int) (Value, int, error) {
	depth := d.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	if offset < 0 || offset > len(buf) {
		return nil, offset, errors.Wrapf(ErrInvalidTag, "offset %d out of range", offset)
	}
	return decode(buf, offset, depth)
}

func decode(buf []byte, pos int, depth int) (Value, int, error) {
	if pos >= len(buf) {
		return nil, pos, errors.Wrapf(ErrInvalidTag, "unexpected end of input at %d", pos)
	}

	switch c := buf[pos]; {
	case c == 'i':
		return decodeInteger(buf, pos)
	case c == 'l':
		return decodeList(buf, pos, depth)
	case c == 'd':
		return decodeDict(buf, pos, depth)
	case isDigit(c):
		return decodeString(buf, pos)
	default:
		return nil, pos, errors.Wrapf(ErrInvalidTag, "unexpected byte %q at %d", c, pos)
	}
}

// i<digits>e
func decodeInteger(buf []byte, pos int) (Value, int, error) {
	start := pos + 1
	end := start
	for end < len(buf) && buf[end] != 'e' {
		end++
	}
	if end >= len(buf) {
		return nil, pos, errors.Wrapf(ErrMalformedInteger, "no terminator for integer at %d", pos)
	}

	digits := buf[start:end]
	if !canonicalInteger(digits) {
		return nil, pos, errors.Wrapf(ErrMalformedInteger, "invalid integer %q at %d", digits, pos)
	}
	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return nil, pos, errors.Wrapf(ErrMalformedInteger, "invalid integer %q at %d", digits, pos)
	}
	return Integer(n), end + 1, nil
}

// canonicalInteger rejects a + sign, leading zeros and -0 so that every decoded
// integer encodes back to the bytes it came from.
func canonicalInteger(b []byte) bool {
	if len(b) > 0 && b[0] == '-' {
		b = b[1:]
		if len(b) > 0 && b[0] == '0' {
			return false
		}
	}
	if len(b) == 0 {
		return false
	}
	if b[0] == '0' && len(b) > 1 {
		return false
	}
	for _, c := range b {
		if !isDigit(c) {
			return false
		}
	}
	return true
}

// <length>:<bytes>
func decodeString(buf []byte, pos int) (Value, int, error) {
	colon := pos
	for colon < len(buf) && isDigit(buf[colon]) {
		colon++
	}
	if colon >= len(buf) || buf[colon] != ':' {
		return nil, pos, errors.Wrapf(ErrMalformedString, "missing colon for string at %d", pos)
	}

	digits := buf[pos:colon]
	if digits[0] == '0' && len(digits) > 1 {
		return nil, pos, errors.Wrapf(ErrMalformedString, "length %q has leading zeros at %d", digits, pos)
	}
	length, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return nil, pos, errors.Wrapf(ErrMalformedString, "invalid length %q at %d", digits, pos)
	}

	start := colon + 1
	if length > int64(len(buf)-start) {
		return nil, pos, errors.Wrapf(ErrMalformedString, "string at %d wants %d bytes, %d left", pos, length, len(buf)-start)
	}

	end := start + int(length)
	s := make(String, length)
	copy(s, buf[start:end])
	return s, end, nil
}

func decodeList(buf []byte, pos int, depth int) (Value, int, error) {
	if depth <= 0 {
		return nil, pos, errors.Wrapf(ErrStructureTooDeep, "list at %d", pos)
	}

	list := List{}
	i := pos + 1
	for {
		if i >= len(buf) {
			return nil, pos, errors.Wrapf(ErrMalformedList, "no terminator for list at %d", pos)
		}
		if buf[i] == 'e' {
			return list, i + 1, nil
		}

		v, next, err := decode(buf, i, depth-1)
		if err != nil {
			return nil, pos, err
		}
		list = append(list, v)
		i = next
	}
}

func decodeDict(buf []byte, pos int, depth int) (Value, int, error) {
	if depth <= 0 {
		return nil, pos, errors.Wrapf(ErrStructureTooDeep, "dictionary at %d", pos)
	}

	dict := Dict{}
	seen := make(map[string]struct{})
	i := pos + 1
	for {
		if i >= len(buf) {
			return nil, pos, errors.Wrapf(ErrMalformedDictionary, "no terminator for dictionary at %d", pos)
		}
		if buf[i] == 'e' {
			return dict, i + 1, nil
		}
		if !isDigit(buf[i]) {
			return nil, pos, errors.Wrapf(ErrMalformedDictionary, "key at %d is not a string", i)
		}

		k, next, err := decodeString(buf, i)
		if err != nil {
			return nil, pos, err
		}
		key := string(k.(String))
		if _, ok := seen[key]; ok {
			return nil, pos, errors.Wrapf(ErrMalformedDictionary, "duplicate key %q at %d", key, i)
		}
		seen[key] = struct{}{}

		if next >= len(buf) || buf[next] == 'e' {
			return nil, pos, errors.Wrapf(ErrMalformedDictionary, "key %q at %d has no value", key, i)
		}
		v, next, err := decode(buf, next, depth-1)
		if err != nil {
			return nil, pos, err
		}
		dict = append(dict, Entry{Key: key, Value: v})
		i = next
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
