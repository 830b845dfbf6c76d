package fetcher

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// FetchPage is one page of source records in canonical form.
type FetchPage struct {
	Items []json.RawMessage `json:"items"`
	Meta  *PageMeta         `json:"meta,omitempty"`
}

// PageMeta holds the pagination fields the source reported. Fields the source
// did not report stay nil.
type PageMeta struct {
	Page       *int    `json:"page,omitempty"`
	Total      *int    `json:"total,omitempty"`
	HasMore    *bool   `json:"hasMore,omitempty"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// Keys probed, in order, for the record list of a wrapped response.
var listKeys = []string{"data", "results", "items"}

var ErrInvalidJSON = errors.New("source response is not valid JSON")

// Normalize converts a raw list response into a FetchPage.
//
// Fallback chain:
//  1. a bare JSON array is the item list, without meta;
//  2. otherwise the first array found under data, results, items;
//  3. otherwise the object itself becomes a one-element list.
//
// Unexpected shapes never fail; only malformed JSON does.
func Normalize(raw []byte) (*FetchPage, error) {
	if len(raw) == 0 {
		return &FetchPage{Items: []json.RawMessage{}}, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}

	root := gjson.ParseBytes(raw)
	if root.IsArray() {
		return &FetchPage{Items: rawItems(root)}, nil
	}
	if !root.IsObject() {
		// Scalars and null carry no records.
		return &FetchPage{Items: []json.RawMessage{}}, nil
	}

	page := &FetchPage{Meta: parseMeta(root)}
	for _, key := range listKeys {
		if list := root.Get(key); list.IsArray() {
			page.Items = rawItems(list)
			return page, nil
		}
	}

	page.Items = []json.RawMessage{json.RawMessage(root.Raw)}
	return page, nil
}

func rawItems(list gjson.Result) []json.RawMessage {
	items := make([]json.RawMessage, 0, len(list.Array()))
	list.ForEach(func(_, value gjson.Result) bool {
		items = append(items, json.RawMessage(value.Raw))
		return true
	})
	return items
}

func parseMeta(root gjson.Result) *PageMeta {
	meta := &PageMeta{}

	if v, ok := firstNumber(root, "page", "currentPage"); ok {
		meta.Page = &v
	}
	if v, ok := firstNumber(root, "total", "totalCount"); ok {
		meta.Total = &v
	}

	if hasMore := root.Get("hasMore"); hasMore.IsBool() {
		b := hasMore.Bool()
		meta.HasMore = &b
	} else if totalPages, ok := firstNumber(root, "totalPages"); ok && meta.Page != nil {
		b := *meta.Page < totalPages
		meta.HasMore = &b
	}

	for _, key := range []string{"nextCursor", "next"} {
		v := root.Get(key)
		if v.Type != gjson.String && v.Type != gjson.Number {
			continue
		}
		// Numeric cursors keep their literal digits.
		s := v.Str
		if v.Type == gjson.Number {
			s = v.Raw
		}
		if s != "" {
			meta.NextCursor = &s
			break
		}
	}

	if meta.Page == nil && meta.Total == nil && meta.HasMore == nil && meta.NextCursor == nil {
		return nil
	}
	return meta
}

func firstNumber(root gjson.Result, keys ...string) (int, bool) {
	for _, key := range keys {
		if v := root.Get(key); v.Type == gjson.Number {
			return int(v.Int()), true
		}
	}
	return 0, false
}
