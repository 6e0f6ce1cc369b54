package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mapping binds a field to a property name in a source payload.
type Mapping struct {
	Field    Field
	Property string
	Invert   bool
}

// Source describes a telemetry publisher and the fields read from it.
type Source struct {
	Name     string
	Topic    string
	Mappings []Mapping
}

// Decode parses a flat JSON object.
func Decode(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}
	return data, nil
}

// Extract reads the mapped fields of src from data. Properties that are
// missing or cannot be parsed as a number are left out.
func Extract(src Source, data map[string]any) map[Field]float64 {
	out := make(map[Field]float64, len(src.Mappings))
	for _, m := range src.Mappings {
		if m.Property == "" {
			continue
		}
		raw, ok := data[m.Property]
		if !ok {
			continue
		}
		v, ok := number(raw)
		if !ok {
			continue
		}
		if m.Invert {
			v = -v
		}
		out[m.Field] = v
	}
	return out
}

func number(raw any) (float64, bool) {
	var v float64
	switch t := raw.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case float64:
		v = t
	case float32:
		v = float64(t)
	case int:
		v = float64(t)
	case int64:
		v = float64(t)
	case bool:
		if t {
			v = 1
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
