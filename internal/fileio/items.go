package fileio

import (
	"fmt"
	"io"
	"strings"

	"price-recon/internal/reconcile/model"
	"price-recon/internal/utils"
)

// Default column names tried when a mapping leaves a key empty.
const (
	DefaultNameKey  = "producto|descripcion|nombre|titulo|name|title"
	DefaultPriceKey = "precio|price|importe|valor"
	DefaultBrandKey = "marca|brand"
)

// ReadItems reads a table and maps its rows to comparator items. Rows
// without a title are skipped; unreadable prices become 0.
func ReadItems(r io.Reader, filename string, m model.Mapping, source string) ([]model.Item, error) {
	if m.HeaderRow < 1 {
		m.HeaderRow = 1
	}
	rows, err := ReadAnyMaps(r, filename, m.HeaderRow)
	if err != nil {
		return nil, err
	}
	items, err := ToItems(rows, m, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return items, nil
}

// ToItems maps rows with a shared header set to items.
func ToItems(rows []map[string]string, m model.Mapping, source string) ([]model.Item, error) {
	items := make([]model.Item, 0, len(rows))
	if len(rows) == 0 {
		return items, nil
	}
	nameKey := ResolveKey(rows[0], orDefault(m.NameKey, DefaultNameKey))
	if nameKey == "" {
		return nil, fmt.Errorf("no title column matches %q", orDefault(m.NameKey, DefaultNameKey))
	}
	priceKey := ResolveKey(rows[0], orDefault(m.PriceKey, DefaultPriceKey))
	brandKey := ResolveKey(rows[0], orDefault(m.BrandKey, DefaultBrandKey))

	for _, rec := range rows {
		name := strings.TrimSpace(rec[nameKey])
		// blank rows and repeated header rows of paged exports
		if name == "" || strings.EqualFold(name, nameKey) {
			continue
		}
		it := model.Item{Name: name, Source: source}
		if priceKey != "" {
			if p, ok := utils.ParsePrice(rec[priceKey]); ok {
				it.Price = p
			}
		}
		if brandKey != "" {
			it.Brand = strings.TrimSpace(rec[brandKey])
		}
		items = append(items, it)
	}
	return items, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
