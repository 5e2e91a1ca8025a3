package model

import (
	"bytes"
	"encoding/json"

	"price-recon/internal/utils"
)

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = Price{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, ok := utils.ParsePrice(s)
		*p = Price{Value: v, Valid: ok}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		// malformed price is absent, not fatal
		*p = Price{}
		return nil
	}
	*p = Price{Value: f, Valid: f >= 0}
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}
