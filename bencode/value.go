package bencode

// Value is a decoded bencode value. It is always one of Integer, String,
// List or Dict.
type Value interface {
	isValue()
}

// Integer is a bencoded signed integer, i<decimal>e
type Integer int64

// String is a length prefixed byte string. It is not assumed to be UTF-8.
type String []byte

// List is an ordered list of values
type List []Value

// Dict is a dictionary of byte string keys. Entries keep the order they were
// read in, Encode sorts them.
type Dict []Entry

// Entry is a single key/value pair of a Dict
type Entry struct {
	Key   string
	Value Value
}

func (Integer) isValue() {}
func (String) isValue()  {}
func (List) isValue()    {}
func (Dict) isValue()    {}

// Get returns the value stored under key
func (d Dict) Get(key string) (Value, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Plain converts a value into plain go types (int64, string, []interface{},
// map[string]interface{}), mostly useful for dumping a value as json.
func Plain(v Value) interface{} {
	switch v := v.(type) {
	case Integer:
		return int64(v)
	case String:
		return string(v)
	case List:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = Plain(item)
		}
		return out
	case Dict:
		out := make(map[string]interface{}, len(v))
		for _, e := range v {
			out[e.Key] = Plain(e.Value)
		}
		return out
	}
	return nil
}
