package graphkv

import (
	"encoding/json"
	"fmt"
	"iter"
	"math"
	"strconv"
)

// KeySet is the key specification found at one depth of a PathSet. It is one of
// Key (single key), KeyList (list of keys and ranges) or Range (inclusive integer range).
type KeySet interface {
	// Keys yields the keys named by this specification in their natural order.
	Keys() iter.Seq[Key]
	// Len returns the number of keys Keys yields.
	Len() int

	keySet()
}

// Key is a single graph key. Integer keys are kept in their decimal form, the graph
// addresses both the same way.
type Key string

// IntKey returns the Key for an integer index.
func IntKey(i int) Key {
	return Key(strconv.Itoa(i))
}

// Int returns the integer form of the key, if it is a canonical decimal integer.
func (k Key) Int() (int, bool) {
	i, err := strconv.Atoi(string(k))
	if err != nil || strconv.Itoa(i) != string(k) {
		return 0, false
	}
	return i, true
}

// Keys yields the key itself.
func (k Key) Keys() iter.Seq[Key] {
	return func(yield func(Key) bool) {
		yield(k)
	}
}

// Len of a single key is always 1.
func (k Key) Len() int { return 1 }

func (Key) keySet() {}

// KeyList is an ordered list of keys and ranges.
type KeyList []KeySet

// Keys yields the keys of every member in list order. Nil members are skipped.
func (kl KeyList) Keys() iter.Seq[Key] {
	return func(yield func(Key) bool) {
		for _, ks := range kl {
			if ks == nil {
				continue
			}
			for k := range ks.Keys() {
				if !yield(k) {
					return
				}
			}
		}
	}
}

// Len returns the sum of the members' cardinalities, saturating at math.MaxInt.
func (kl KeyList) Len() int {
	n := 0
	for _, ks := range kl {
		if ks == nil {
			continue
		}
		l := ks.Len()
		if n > math.MaxInt-l {
			return math.MaxInt
		}
		n += l
	}
	return n
}

func (KeyList) keySet() {}

// Range is an inclusive integer range. A range whose From is greater than To is empty.
type Range struct {
	From int
	To   int
}

// Keys yields From..To in ascending order.
func (r Range) Keys() iter.Seq[Key] {
	return func(yield func(Key) bool) {
		if r.From > r.To {
			return
		}
		// i == r.To ends the loop, so a range up to math.MaxInt never wraps.
		for i := r.From; ; i++ {
			if !yield(IntKey(i)) || i == r.To {
				return
			}
		}
	}
}

// Len returns the number of integers in the range, math.MaxInt when that does not fit an int.
func (r Range) Len() int {
	if r.From > r.To {
		return 0
	}
	n := uint(r.To) - uint(r.From)
	if n >= math.MaxInt {
		return math.MaxInt
	}
	return int(n) + 1
}

func (Range) keySet() {}

type rangeJSON struct {
	From   *int `json:"from,omitempty"`
	To     *int `json:"to,omitempty"`
	Length *int `json:"length,omitempty"`
}

// MarshalJSON writes the range in its {"from","to"} form.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(rangeJSON{From: &r.From, To: &r.To})
}

// UnmarshalJSON accepts {"from","to"} and {"from","length"}. A missing from defaults to 0.
func (r *Range) UnmarshalJSON(data []byte) error {
	var rj rangeJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return err
	}
	from := 0
	if rj.From != nil {
		from = *rj.From
	}
	switch {
	case rj.To != nil:
		r.From, r.To = from, *rj.To
	case rj.Length != nil:
		n := *rj.Length
		switch {
		case n < 0:
			return fmt.Errorf("range %s has a negative length", string(data))
		case n == 0:
			if from == math.MinInt {
				r.From, r.To = 0, -1
			} else {
				r.From, r.To = from, from-1
			}
		case from > math.MaxInt-(n-1):
			return fmt.Errorf("range %s overflows", string(data))
		default:
			r.From, r.To = from, from+n-1
		}
	default:
		return fmt.Errorf("range %s needs either 'to' or 'length'", string(data))
	}
	return nil
}

// ParseKeySet converts a JSON decoded value (as produced by encoding/json into an any) to a KeySet.
// A nil value yields a nil KeySet, i.e. a missing specification.
func ParseKeySet(v any) (KeySet, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case KeySet:
		return t, nil
	case string:
		return Key(t), nil
	case bool:
		return Key(strconv.FormatBool(t)), nil
	case int:
		return IntKey(t), nil
	case int64:
		return Key(strconv.FormatInt(t, 10)), nil
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which int64 can't hold.
		if t == math.Trunc(t) && t >= math.MinInt64 && t < math.MaxInt64 {
			return Key(strconv.FormatInt(int64(t), 10)), nil
		}
		return Key(strconv.FormatFloat(t, 'f', -1, 64)), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Key(strconv.FormatInt(i, 10)), nil
		}
		return Key(t.String()), nil
	case []any:
		kl := make(KeyList, 0, len(t))
		for _, e := range t {
			ks, err := ParseKeySet(e)
			if err != nil {
				return nil, err
			}
			if ks != nil {
				kl = append(kl, ks)
			}
		}
		return kl, nil
	case map[string]any:
		ba, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		var r Range
		if err := json.Unmarshal(ba, &r); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("unsupported key specification %v (%T)", v, v)
}

// cloneKeySet returns a structural copy of ks.
func cloneKeySet(ks KeySet) KeySet {
	kl, ok := ks.(KeyList)
	if !ok {
		// Key and Range are values.
		return ks
	}
	r := make(KeyList, len(kl))
	for i := range kl {
		r[i] = cloneKeySet(kl[i])
	}
	return r
}
