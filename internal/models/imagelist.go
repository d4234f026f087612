package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// ImageList is an ordered list of file identifiers. It is persisted as a JSON
// array in relational stores and always marshals as an array, never null.
type ImageList []string

// Value implements driver.Valuer.
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Anything the column holds is normalized, so
// rows written by older clients (scalars, comma strings) still read as lists.
func (l *ImageList) Scan(src any) error {
	*l = NormalizeImageList(src)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l ImageList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// UnmarshalJSON accepts an array or any of the legacy string encodings.
func (l *ImageList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = NormalizeImageList(raw)
	return nil
}

// NormalizeImageList turns a stored image field into a list. Accepted shapes:
// nil, []string, []any, a JSON-encoded array string, a comma-separated string
// and a single scalar. Blank entries are dropped. The result is never nil.
func NormalizeImageList(raw any) ImageList {
	switch v := raw.(type) {
	case nil:
		return ImageList{}
	case ImageList:
		return compactImages(v)
	case []string:
		return compactImages(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
		return compactImages(items)
	case []byte:
		return normalizeImageString(string(v))
	case string:
		return normalizeImageString(v)
	default:
		return ImageList{}
	}
}

func normalizeImageString(s string) ImageList {
	s = strings.TrimSpace(s)
	if s == "" {
		return ImageList{}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, `"`) {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			switch p := parsed.(type) {
			case []any:
				return NormalizeImageList(p)
			case string:
				return normalizeImageString(p)
			}
		}
	}
	return compactImages(strings.Split(s, ","))
}

func compactImages(items []string) ImageList {
	out := make(ImageList, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
