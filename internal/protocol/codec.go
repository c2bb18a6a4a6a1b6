package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec selects the envelope encoding of a connection. Text frames carry
// JSON, binary frames carry MessagePack.
type Codec int

const (
	CodecJSON Codec = iota
	CodecMsgpack
)

func (c Codec) String() string {
	switch c {
	case CodecJSON:
		return "json"
	case CodecMsgpack:
		return "msgpack"
	}
	return fmt.Sprintf("codec(%d)", int(c))
}

type outEnvelope struct {
	Event string `json:"event" msgpack:"event"`
	Data  any    `json:"data" msgpack:"data"`
}

// Encode builds a complete frame for event/data.
func (c Codec) Encode(event string, data any) ([]byte, error) {
	switch c {
	case CodecJSON:
		return json.Marshal(outEnvelope{Event: event, Data: data})
	case CodecMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		enc.UseCompactInts(true)
		if err := enc.Encode(outEnvelope{Event: event, Data: data}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("encode: unknown %s", c)
}

// Decode parses a frame. MessagePack payloads are normalized to JSON so
// validation and dispatch see a single representation.
func (c Codec) Decode(b []byte) (Envelope, error) {
	switch c {
	case CodecJSON:
		return DecodeEnvelope(b)
	case CodecMsgpack:
		var raw struct {
			Event string `msgpack:"event"`
			Data  any    `msgpack:"data"`
		}
		if err := msgpack.Unmarshal(b, &raw); err != nil {
			return Envelope{}, err
		}
		env := Envelope{Event: raw.Event}
		if raw.Data != nil {
			data, err := json.Marshal(normalize(raw.Data))
			if err != nil {
				return Envelope{}, fmt.Errorf("decode %s data: %w", raw.Event, err)
			}
			env.Data = data
		}
		return env, nil
	}
	return Envelope{}, fmt.Errorf("decode: unknown %s", c)
}

// normalize rewrites map[any]any, which encoding/json cannot marshal, into
// map[string]any.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	}
	return v
}
