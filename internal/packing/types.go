package packing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Item is a single product unit in a cart.
type Item struct {
	Width  float64 `cbor:"width"`
	Height float64 `cbor:"height"`
	Length float64 `cbor:"length"`
	Weight float64 `cbor:"weight"`
}

// Box is a catalog container. ID is assigned once by the catalog and never
// changes for a given box.
type Box struct {
	ID        int64
	Width     float64
	Height    float64
	Length    float64
	MaxWeight float64
}

// Decision is the outcome of a packing request: either the id of a single box
// holding every item, or NoFit when no single box does.
type Decision struct {
	BoxID string
	Fits  bool
}

// NoFit is the valid negative result.
var NoFit = Decision{}

// FitsIn returns a positive Decision for the given box id.
func FitsIn(boxID string) Decision {
	return Decision{BoxID: boxID, Fits: true}
}

// FitsInBox returns a positive Decision for a catalog box.
func FitsInBox(id int64) Decision {
	return FitsIn(strconv.FormatInt(id, 10))
}

func (d Decision) String() string {
	if !d.Fits {
		return "no-fit"
	}
	return d.BoxID
}

// MarshalJSON renders the decision as the outward box_id value: false when
// nothing fits, a number for integer ids and a string otherwise.
func (d Decision) MarshalJSON() ([]byte, error) {
	if !d.Fits {
		return []byte("false"), nil
	}
	if n, err := strconv.ParseInt(d.BoxID, 10, 64); err == nil && strconv.FormatInt(n, 10) == d.BoxID {
		return []byte(d.BoxID), nil
	}
	return json.Marshal(d.BoxID)
}

// UnmarshalJSON accepts every form produced by MarshalJSON.
func (d *Decision) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		if v {
			return fmt.Errorf("decision: unexpected literal true")
		}
		*d = NoFit
	case string:
		*d = FitsIn(v)
	case json.Number:
		*d = FitsIn(v.String())
	default:
		return fmt.Errorf("decision: unsupported value %s", data)
	}
	return nil
}
