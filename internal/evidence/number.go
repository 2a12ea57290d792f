package evidence

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Number is a float that survives JSON even when it is NaN or infinite,
// which is exactly the state a failed finiteness check records.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("evidence: invalid number %q", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Vector is a state vector in manifest form.
type Vector []Number

func VectorOf(v []float64) Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	for i, f := range v {
		out[i] = Number(f)
	}
	return out
}

func (v Vector) Floats() []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, n := range v {
		out[i] = float64(n)
	}
	return out
}

// ParamsOf converts a parameter map to manifest form.
func ParamsOf(p map[string]float64) map[string]Number {
	out := make(map[string]Number, len(p))
	for k, v := range p {
		out[k] = Number(v)
	}
	return out
}
