package packing

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// keyEncoding is base64 with '.' and '_' in place of '+' and '/'. A SHA-384
// digest is 48 bytes, so there is never any padding.
var keyEncoding = base64.NewEncoding(
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789._",
).WithPadding(base64.NoPadding)

var itemEncMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("packing: build cbor encoding mode: %v", err))
	}
	return em
}

// Key returns the cache key for a catalog and a cart. boxIDs must be sorted
// ascending and items normalized and sorted with NormalizeItems; the key is
// then independent of the order and formatting the cart arrived in.
func Key(boxIDs []int64, items []Item) (string, error) {
	payload, err := itemEncMode.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}

	ids := make([]string, len(boxIDs))
	for i, id := range boxIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	h := sha512.New384()
	h.Write([]byte("X-Box-Ids: " + strings.Join(ids, ",") + "\n\n"))
	h.Write(payload)

	return keyEncoding.EncodeToString(h.Sum(nil)), nil
}
