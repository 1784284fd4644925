package engine

import (
	"encoding/binary"
	"math"
	"reflect"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	portruntime "github.com/wippyai/port-runtime"
	"github.com/wippyai/port-runtime/errors"
)

// hostRefExtID is the msgpack extension id carrying host-object
// references inside a serialized payload.
const hostRefExtID = 42

// hostRef is the in-payload placeholder for a host object. The index is
// resolved by the deserializing delegate against the message's resource
// lists.
type hostRef struct {
	Index uint32
}

var (
	_ msgpack.Marshaler   = (*hostRef)(nil)
	_ msgpack.Unmarshaler = (*hostRef)(nil)
)

func (r *hostRef) MarshalMsgpack() ([]byte, error) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], r.Index)
	return buf[:], nil
}

func (r *hostRef) UnmarshalMsgpack(b []byte) error {
	if len(b) != 4 {
		return errors.InvalidData(errors.PhaseDeserialize, nil, "malformed host object reference")
	}
	r.Index = binary.LittleEndian.Uint32(b)
	return nil
}

func init() {
	msgpack.RegisterExt(hostRefExtID, (*hostRef)(nil))
}

// SerializeValue deep-encodes a structured value graph into msgpack bytes.
// Host objects encountered in the graph are recorded through the delegate
// and replaced with indexed references. Values outside the supported set
// fail with an unclonable error naming the offending path.
func SerializeValue(value any, delegate portruntime.HostObjectDelegate) ([]byte, error) {
	tree, err := encodeTree(value, delegate, nil)
	if err != nil {
		return nil, err
	}
	payload, err := msgpack.Marshal(tree)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSerialize, errors.KindInvalidData, err, "payload encoding failed")
	}
	return payload, nil
}

// DeserializeValue decodes msgpack bytes back into a value graph, asking
// the reader delegate to resolve host-object references. Integers come
// back as int64 (uint64 beyond the int64 range) and floats as float64.
func DeserializeValue(payload []byte, reader portruntime.HostObjectReader) (any, error) {
	var tree any
	if err := msgpack.Unmarshal(payload, &tree); err != nil {
		return nil, errors.Wrap(errors.PhaseDeserialize, errors.KindInvalidData, err, "payload decoding failed")
	}
	return resolveTree(tree, reader)
}

func encodeTree(v any, delegate portruntime.HostObjectDelegate, path []string) (any, error) {
	if v == nil {
		return nil, nil
	}

	if ho, ok := v.(portruntime.HostObject); ok {
		idx, err := delegate.WriteHostObject(ho)
		if err != nil {
			return nil, err
		}
		return &hostRef{Index: idx}, nil
	}

	switch t := v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t, nil
	case []byte:
		return t, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return encodeTree(rv.Elem().Interface(), delegate, path)

	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			child, err := encodeTree(rv.Index(i).Interface(), delegate, childPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errors.Unclonable(errors.PhaseSerialize, path, rv.Type().String())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			child, err := encodeTree(iter.Value().Interface(), delegate, childPath(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = child
		}
		return out, nil

	default:
		return nil, errors.Unclonable(errors.PhaseSerialize, path, rv.Type().String())
	}
}

func resolveTree(v any, reader portruntime.HostObjectReader) (any, error) {
	switch t := v.(type) {
	case *hostRef:
		return reader.ReadHostObject(t.Index)
	case hostRef:
		return reader.ReadHostObject(t.Index)

	case map[string]any:
		for key, val := range t {
			resolved, err := resolveTree(val, reader)
			if err != nil {
				return nil, err
			}
			t[key] = resolved
		}
		return t, nil

	case map[any]any:
		out := make(map[string]any, len(t))
		for key, val := range t {
			name, ok := key.(string)
			if !ok {
				return nil, errors.InvalidData(errors.PhaseDeserialize, nil, "non-string map key in payload")
			}
			resolved, err := resolveTree(val, reader)
			if err != nil {
				return nil, err
			}
			out[name] = resolved
		}
		return out, nil

	case []any:
		for i, val := range t {
			resolved, err := resolveTree(val, reader)
			if err != nil {
				return nil, err
			}
			t[i] = resolved
		}
		return t, nil

	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint:
		return normalizeUint(uint64(t)), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return normalizeUint(t), nil
	case float32:
		return float64(t), nil

	default:
		return t, nil
	}
}

func normalizeUint(v uint64) any {
	if v > math.MaxInt64 {
		return v
	}
	return int64(v)
}

func childPath(path []string, elem string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, elem)
}
