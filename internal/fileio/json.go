package fileio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// readJSON reads an array of flat objects, e.g. a scraper dump. Values are
// rendered as text so every reader hands back the same shape.
func readJSON(r io.Reader) ([]map[string]string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var recs []map[string]any
	if err := dec.Decode(&recs); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	out := make([]map[string]string, 0, len(recs))
	for _, rec := range recs {
		m := make(map[string]string, len(rec))
		for k, v := range rec {
			m[k] = jsonText(v)
		}
		out = append(out, m)
	}
	return out, nil
}

func jsonText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return normalizeCell(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(t)
		return string(bytes.TrimSpace(buf.Bytes()))
	}
}
