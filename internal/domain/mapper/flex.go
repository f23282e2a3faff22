package mapper

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// flexString accepts a JSON string or number. null, objects and arrays
// leave it unset without failing the surrounding decode.
type flexString struct {
	s   string
	set bool
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			f.s, f.set = s, true
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f.s, f.set = string(data), true
	}
	return nil
}

func (f flexString) String() string { return f.s }

// Ptr returns nil for absent, null or empty values
func (f flexString) Ptr() *string {
	if !f.set || f.s == "" {
		return nil
	}
	s := f.s
	return &s
}

// flexInt accepts a JSON number or numeric string, truncating fractions
type flexInt struct {
	n   int
	set bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var fs flexString
	_ = fs.UnmarshalJSON(data)
	if !fs.set {
		return nil
	}
	if n, err := strconv.Atoi(fs.s); err == nil {
		f.n, f.set = n, true
		return nil
	}
	if d, err := decimal.NewFromString(fs.s); err == nil {
		f.n, f.set = int(d.IntPart()), true
	}
	return nil
}
