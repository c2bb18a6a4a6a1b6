package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestCodecJSON_WorldUpdateShape(t *testing.T) {
	tr := Transform{State: StateWalk, Position: [3]float64{1, 2, 3}, Rotation: [4]float64{0, 0, 0, 1}}
	b, err := CodecJSON.Encode(EventWorldUpdate, []EntityUpdate{
		{ID: 1, Stats: Stats{Health: 10}, Events: []EntityEvent{}},
		{ID: 2, Transform: &tr, Stats: Stats{Health: 5}, Events: []EntityEvent{{Type: EntityEventAttack, Target: 2, Attacker: 1, Amount: 3}}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(b)
	for _, want := range []string{
		`"event":"world.update"`,
		`"transform":["walk",[1,2,3],[0,0,0,1]]`,
		`{"type":"attack","target":2,"attacker":1,"amount":3}`,
		`"events":[]`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %s in %s", want, s)
		}
	}
	if strings.Contains(s, `"desc"`) {
		t.Fatalf("desc should be omitted: %s", s)
	}
	if strings.Count(s, `"transform"`) != 1 {
		t.Fatalf("self record must not carry a transform: %s", s)
	}
}

func TestCodecJSON_ArrayPackets(t *testing.T) {
	b, err := CodecJSON.Encode(EventWorldStats, StatsPacket{ID: 7, Stats: Stats{Health: 1, Strength: 2, Wisdomness: 3}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got, want := string(b), `{"event":"world.stats","data":[7,{"health":1,"strength":2,"wisdomness":3}]}`; got != want {
		t.Fatalf("got %s want %s", got, want)
	}

	b, err = CodecJSON.Encode(EventWorldInventory, InventoryPacket{ID: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got, want := string(b), `{"event":"world.inventory","data":[3,{}]}`; got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestTransform_UnmarshalRejectsShortArray(t *testing.T) {
	var tr Transform
	if err := json.Unmarshal([]byte(`["walk",[1,2,3]]`), &tr); err == nil {
		t.Fatalf("expected error")
	}
	if err := json.Unmarshal([]byte(`["attack",[1,2,3],[0,1,0,0]]`), &tr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tr.State != StateAttack || tr.Position[2] != 3 || tr.Rotation[1] != 1 {
		t.Fatalf("unexpected transform %+v", tr)
	}
}

func TestCodecMsgpack_EncodeStats(t *testing.T) {
	b, err := CodecMsgpack.Encode(EventWorldStats, StatsPacket{ID: 9, Stats: Stats{Health: 50}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out map[string]any
	if err := msgpack.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["event"] != EventWorldStats {
		t.Fatalf("event=%v", out["event"])
	}
	arr, ok := out["data"].([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("data=%#v", out["data"])
	}
	stats, ok := arr[1].(map[string]any)
	if !ok || stats["health"] != float64(50) {
		t.Fatalf("stats=%#v", arr[1])
	}
}

func TestCodecMsgpack_DecodeNormalizesToJSON(t *testing.T) {
	b, err := msgpack.Marshal(map[string]any{
		"event": EventWorldUpdate,
		"data":  []any{"walk", []any{1, 2.5, 3}, []any{0, 0, 0, 1}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	env, err := CodecMsgpack.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Event != EventWorldUpdate {
		t.Fatalf("event=%q", env.Event)
	}
	var tr Transform
	if err := json.Unmarshal(env.Data, &tr); err != nil {
		t.Fatalf("transform: %v (%s)", err, env.Data)
	}
	if tr.State != StateWalk || tr.Position != [3]float64{1, 2.5, 3} {
		t.Fatalf("transform=%+v", tr)
	}

	v, err := NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	if err := v.Validate(env); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidator(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	for _, ev := range []string{EventLoginCommit, EventWorldUpdate, EventChatMsg, EventActionAttack, EventWorldInventory} {
		if !v.Known(ev) {
			t.Fatalf("missing schema for %s", ev)
		}
	}

	ok := []Envelope{
		{Event: EventLoginCommit, Data: json.RawMessage(`"bob"`)},
		{Event: EventWorldUpdate, Data: json.RawMessage(`["idle",[0,0,0],[0,0,0,1]]`)},
		{Event: EventChatMsg, Data: json.RawMessage(`"hello"`)},
		{Event: EventActionAttack},
		{Event: EventWorldInventory, Data: json.RawMessage(`[4,{"inventory-equip-1":"weapon-axe1"}]`)},
		{Event: "no.such.event", Data: json.RawMessage(`123`)},
	}
	for _, env := range ok {
		if err := v.Validate(env); err != nil {
			t.Fatalf("%s: unexpected error %v", env.Event, err)
		}
	}

	bad := []Envelope{
		{Event: EventLoginCommit, Data: json.RawMessage(`""`)},
		{Event: EventLoginCommit},
		{Event: EventWorldUpdate, Data: json.RawMessage(`["fly",[0,0,0],[0,0,0,1]]`)},
		{Event: EventWorldUpdate, Data: json.RawMessage(`["idle",[0,0],[0,0,0,1]]`)},
		{Event: EventChatMsg, Data: json.RawMessage(`42`)},
		{Event: EventWorldInventory, Data: json.RawMessage(`[4,{"slot":7}]`)},
		{Event: EventWorldInventory, Data: json.RawMessage(`[-1,{}]`)},
	}
	for _, env := range bad {
		if err := v.Validate(env); err == nil {
			t.Fatalf("%s %s: expected error", env.Event, env.Data)
		}
	}
}

func TestEntityStateValid(t *testing.T) {
	for _, s := range []EntityState{StateIdle, StateWalk, StateAttack, StateDeath} {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if EntityState("swim").Valid() {
		t.Fatalf("swim should be invalid")
	}
}
