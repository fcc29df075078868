package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/eugenenazirov/box-estimator/internal/packing"
)

type packRequest struct {
	Products *[]json.RawMessage `json:"products"`
}

type productInput struct {
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
	Length *float64 `json:"length"`
	Weight *float64 `json:"weight"`
}

// decodePackRequest maps a request body onto items. It accepts exactly
// {"products": [{"width", "height", "length", "weight"}, ...]} with every field
// a non-negative number. An empty product list is returned as-is.
func decodePackRequest(body []byte) ([]packing.Item, error) {
	var req packRequest
	if err := decodeStrict(body, &req); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "Unable to parse the request body as JSON")
		}
		return nil, invalidInput(err, "request: %s", describe(err))
	}
	if req.Products == nil {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "products: missing required array")
	}

	raw := *req.Products
	items := make([]packing.Item, len(raw))
	for i, data := range raw {
		var p productInput
		if err := decodeStrict(data, &p); err != nil {
			return nil, invalidInput(err, "products[%d]: %s", i, describe(err))
		}

		fields := []struct {
			name  string
			value *float64
			dst   *float64
		}{
			{"width", p.Width, &items[i].Width},
			{"height", p.Height, &items[i].Height},
			{"length", p.Length, &items[i].Length},
			{"weight", p.Weight, &items[i].Weight},
		}
		for _, f := range fields {
			if f.value == nil {
				return nil, platformerrors.Newf(platformerrors.CodeInvalidInput, "products[%d].%s: missing required number", i, f.name)
			}
			if v := *f.value; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, platformerrors.Newf(platformerrors.CodeInvalidInput, "products[%d].%s: must be a non-negative number", i, f.name)
			}
			*f.dst = *f.value
		}
	}

	return items, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func describe(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field != "" {
			return fmt.Sprintf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)
	}
	return err.Error()
}

func invalidInput(err error, format string, args ...any) error {
	return platformerrors.Wrapf(err, platformerrors.CodeInvalidInput, format, args...)
}
