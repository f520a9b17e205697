// Copyright 2024 The sprt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package messaging implements the JSON-over-WebSocket state adapter of
// SPEC_FULL §7: a thin external collaborator that feeds StateChange
// messages into the Merger and republishes the runner's broadcast state
// outbound. The core ticker/planner/runner packages have no dependency
// on this package; it exists so the wire protocol the spec describes
// has one concrete, working home.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/symbolicsp/sprt"
)

// wireValue is the tag+payload encoding of a Value described in
// SPEC_FULL §7.
type wireValue struct {
	Tag     string      `json:"tag"`
	Payload interface{} `json:"payload,omitempty"`
}

// wireFrame is one full JSON message: a flat map of path string to
// wireValue, matching "per-path assignments {path: value}".
type wireFrame map[string]wireValue

func encodeValue(v sprt.Value) (wireValue, error) {
	switch v.Type() {
	case sprt.Bool:
		b, _ := v.AsBool()
		return wireValue{Tag: "bool", Payload: b}, nil
	case sprt.Int32:
		i, _ := v.AsInt32()
		return wireValue{Tag: "int32", Payload: i}, nil
	case sprt.Float32:
		f, _ := v.AsFloat32()
		return wireValue{Tag: "float32", Payload: f}, nil
	case sprt.String:
		s, _ := v.AsString()
		return wireValue{Tag: "string", Payload: s}, nil
	case sprt.Time:
		t, _ := v.AsTime()
		return wireValue{Tag: "time", Payload: t.Format(time.RFC3339Nano)}, nil
	case sprt.PathValue:
		p, _ := v.AsPath()
		return wireValue{Tag: "path", Payload: p.String()}, nil
	case sprt.Array:
		arr, _ := v.AsArray()
		elems := make([]wireValue, len(arr))
		for i, e := range arr {
			wv, err := encodeValue(e)
			if err != nil {
				return wireValue{}, err
			}
			elems[i] = wv
		}
		return wireValue{Tag: "array", Payload: elems}, nil
	case sprt.Unknown:
		return wireValue{Tag: "unknown"}, nil
	default:
		return wireValue{}, fmt.Errorf("messaging: unsupported value type %v", v.Type())
	}
}

func decodeValue(wv wireValue) (sprt.Value, error) {
	switch wv.Tag {
	case "bool":
		b, ok := wv.Payload.(bool)
		if !ok {
			return sprt.Value{}, fmt.Errorf("messaging: bool payload is %T", wv.Payload)
		}
		return sprt.NewBool(b), nil
	case "int32":
		n, err := asNumber(wv.Payload)
		if err != nil {
			return sprt.Value{}, err
		}
		return sprt.NewInt32(int32(n)), nil
	case "float32":
		n, err := asNumber(wv.Payload)
		if err != nil {
			return sprt.Value{}, err
		}
		return sprt.NewFloat32(float32(n)), nil
	case "string":
		s, ok := wv.Payload.(string)
		if !ok {
			return sprt.Value{}, fmt.Errorf("messaging: string payload is %T", wv.Payload)
		}
		return sprt.NewString(s), nil
	case "time":
		s, ok := wv.Payload.(string)
		if !ok {
			return sprt.Value{}, fmt.Errorf("messaging: time payload is %T", wv.Payload)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return sprt.Value{}, fmt.Errorf("messaging: parsing time payload: %w", err)
		}
		return sprt.NewTime(t), nil
	case "path":
		s, ok := wv.Payload.(string)
		if !ok {
			return sprt.Value{}, fmt.Errorf("messaging: path payload is %T", wv.Payload)
		}
		return sprt.NewPathValue(sprt.PathFromString(s)), nil
	case "array":
		raw, ok := wv.Payload.([]interface{})
		if !ok {
			return sprt.Value{}, fmt.Errorf("messaging: array payload is %T", wv.Payload)
		}
		elems := make([]sprt.Value, len(raw))
		for i, r := range raw {
			b, err := json.Marshal(r)
			if err != nil {
				return sprt.Value{}, err
			}
			var inner wireValue
			if err := json.Unmarshal(b, &inner); err != nil {
				return sprt.Value{}, err
			}
			v, err := decodeValue(inner)
			if err != nil {
				return sprt.Value{}, err
			}
			elems[i] = v
		}
		return sprt.NewArray(elems), nil
	case "unknown", "":
		return sprt.NewUnknown(), nil
	default:
		return sprt.Value{}, fmt.Errorf("messaging: unsupported wire tag %q", wv.Tag)
	}
}

func asNumber(payload interface{}) (float64, error) {
	switch n := payload.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("messaging: numeric payload is %T", payload)
	}
}

// encodeFrame renders a partial assignment map as a wireFrame.
func encodeFrame(assignments map[sprt.Path]sprt.Value) (wireFrame, error) {
	frame := make(wireFrame, len(assignments))
	for p, v := range assignments {
		wv, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		frame[p.String()] = wv
	}
	return frame, nil
}

// decodeFrame parses a wireFrame back into an assignment map.
func decodeFrame(frame wireFrame) (map[sprt.Path]sprt.Value, error) {
	out := make(map[sprt.Path]sprt.Value, len(frame))
	for pathStr, wv := range frame {
		v, err := decodeValue(wv)
		if err != nil {
			return nil, fmt.Errorf("messaging: decoding %q: %w", pathStr, err)
		}
		out[sprt.PathFromString(pathStr)] = v
	}
	return out, nil
}
