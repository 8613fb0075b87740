package nn

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/Josemiles-ctr/gaitlab/pkg/tensor"
)

// The weight blob uses the safetensors container: an unsigned 64-bit
// little-endian header length, a JSON header mapping tensor names to dtype,
// shape and byte offsets, then the raw tensor data. It is the standard
// export format for checkpoints and needs no framework runtime to read.

// safetensors headers larger than this are rejected as corrupt.
const maxHeaderBytes = 16 << 20

type tensorEntry struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// ReadSafetensors loads every F32 tensor from the blob at path.
func ReadSafetensors(path string) (map[string]*tensor.Tensor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weight blob: %w", err)
	}
	return ParseSafetensors(raw)
}

// ParseSafetensors decodes an in-memory safetensors blob.
func ParseSafetensors(raw []byte) (map[string]*tensor.Tensor, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("weight blob truncated: %d bytes", len(raw))
	}
	headerLen := binary.LittleEndian.Uint64(raw[:8])
	if headerLen > maxHeaderBytes || 8+headerLen > uint64(len(raw)) {
		return nil, fmt.Errorf("weight blob header length %d out of range", headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("parse weight blob header: %w", err)
	}

	data := raw[8+headerLen:]
	out := make(map[string]*tensor.Tensor, len(header))
	for name, rawEntry := range header {
		if name == "__metadata__" {
			continue
		}
		var entry tensorEntry
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			return nil, fmt.Errorf("parse header entry %q: %w", name, err)
		}
		if entry.Dtype != "F32" {
			return nil, fmt.Errorf("tensor %q has dtype %s; only F32 weights are supported", name, entry.Dtype)
		}

		count := 1
		for _, d := range entry.Shape {
			if d <= 0 {
				return nil, fmt.Errorf("tensor %q has invalid shape %v", name, entry.Shape)
			}
			count *= d
		}

		start, end := entry.DataOffsets[0], entry.DataOffsets[1]
		if start < 0 || end > len(data) || end-start != count*4 {
			return nil, fmt.Errorf("tensor %q has offsets [%d,%d) inconsistent with shape %v", name, start, end, entry.Shape)
		}

		values := make([]float32, count)
		for i := 0; i < count; i++ {
			bits := binary.LittleEndian.Uint32(data[start+i*4 : start+i*4+4])
			values[i] = math.Float32frombits(bits)
		}
		t, err := tensor.FromSlice(values, entry.Shape...)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}
