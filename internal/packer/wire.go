package packer

import (
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
	platformerrors "github.com/jmgilman/go/errors"

	"github.com/eugenenazirov/box-estimator/internal/packing"
)

const optimizationBinsNumber = "bins_number"

type packRequest struct {
	Username string     `json:"username"`
	APIKey   string     `json:"api_key"`
	Bins     []wireBin  `json:"bins"`
	Items    []wireItem `json:"items"`
	Params   packParams `json:"params"`
}

// The API calls the third dimension "depth"; it is our length.
type wireBin struct {
	ID    int64   `json:"id"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	D     float64 `json:"d"`
	MaxWg float64 `json:"max_wg"`
}

type wireItem struct {
	ID string  `json:"id"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
	D  float64 `json:"d"`
	Wg float64 `json:"wg"`
	VR int     `json:"vr"`
	Q  int     `json:"q"`
}

type packParams struct {
	OptimizationMode string `json:"optimization_mode"`
}

// Only the fields the decision depends on are declared. Pointers tell a
// missing or null field apart from a zero value.
type packResponse struct {
	BinsPacked *[]packedBin `json:"bins_packed"`
}

type packedBin struct {
	BinData *binData `json:"bin_data"`
}

type binData struct {
	ID *string `json:"id"`
}

func toWireBins(boxes []packing.Box) []wireBin {
	bins := make([]wireBin, len(boxes))
	for i, b := range boxes {
		bins[i] = wireBin{ID: b.ID, W: b.Width, H: b.Height, D: b.Length, MaxWg: b.MaxWeight}
	}
	return bins
}

// toWireItems lists every item separately with quantity 1 and vertical
// rotation allowed, each under a fresh random id.
func toWireItems(items []packing.Item, newID func() string) []wireItem {
	out := make([]wireItem, len(items))
	for i, it := range items {
		out[i] = wireItem{
			ID: newID(),
			W:  it.Width,
			H:  it.Height,
			D:  it.Length,
			Wg: it.Weight,
			VR: 1,
			Q:  1,
		}
	}
	return out
}

func randomItemID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// decodeDecision validates the body against
// {bins_packed: [{bin_data: {id: string}}]} and applies the single-bin rule.
func decodeDecision(body []byte) (packing.Decision, error) {
	var resp packResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return packing.Decision{}, platformerrors.Wrap(err, platformerrors.CodeSchemaFailed,
			"response body does not match schema {bins_packed:[{bin_data:{id:string}}]}")
	}
	if resp.BinsPacked == nil {
		return packing.Decision{}, platformerrors.New(platformerrors.CodeSchemaFailed,
			"response body does not match schema {bins_packed:[]}")
	}

	bins := *resp.BinsPacked
	for i, bin := range bins {
		if bin.BinData == nil || bin.BinData.ID == nil {
			return packing.Decision{}, platformerrors.Newf(platformerrors.CodeSchemaFailed,
				"response body does not match schema: bins_packed[%d].bin_data.id missing", i)
		}
	}

	if len(bins) != 1 {
		return packing.NoFit, nil
	}
	return packing.FitsIn(*bins[0].BinData.ID), nil
}
