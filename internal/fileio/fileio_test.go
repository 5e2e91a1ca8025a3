package fileio

import (
	"bytes"
	"os"
	"strings"
	"testing"

	xls "github.com/extrame/xls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"

	"price-recon/internal/reconcile/model"
)

func TestReadCSV_SemicolonAndHeaderRow(t *testing.T) {
	data := "Lista de precios;;\n" +
		"Producto;Precio;Marca\n" +
		"Split Samsung 12000 BTU Inverter;Gs. 3.500.000;Samsung\n" +
		";;\n" +
		"Split LG 18000 BTU;4.100.000;LG\n"

	rows, err := ReadAnyMaps(strings.NewReader(data), "lista.csv", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Split Samsung 12000 BTU Inverter", rows[0]["Producto"])
	assert.Equal(t, "Gs. 3.500.000", rows[0]["Precio"])
	assert.Equal(t, "LG", rows[1]["Marca"])
}

func TestReadCSV_BOMAndBlankHeader(t *testing.T) {
	data := "\xEF\xBB\xBFname,,price\nSplit A,x,100\n"
	rows, err := ReadAnyMaps(strings.NewReader(data), "a.CSV", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Split A", rows[0]["name"])
	assert.Equal(t, "x", rows[0]["Column 2"])
	assert.Equal(t, "100", rows[0]["price"])
}

func TestReadJSON(t *testing.T) {
	data := `[
		{"title": "Split Samsung 12000 BTU", "price": 3500000, "in_stock": true},
		{"title": " Split LG 12000 BTU ", "price": "Gs. 3.300.000", "brand": null}
	]`
	rows, err := ReadAnyMaps(strings.NewReader(data), "dump.json", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "3500000", rows[0]["price"])
	assert.Equal(t, "true", rows[0]["in_stock"])
	assert.Equal(t, "Split LG 12000 BTU", rows[1]["title"])
	assert.Equal(t, "", rows[1]["brand"])
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Descripción", "Precio Contado"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Split Midea 9000 BTU", "2.100.000"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Split Midea 24000 BTU", 5200000}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	items, err := ReadItems(bytes.NewReader(buf.Bytes()), "precios.xlsx", model.Mapping{HeaderRow: 1}, "bristol")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Split Midea 9000 BTU", items[0].Name)
	assert.Equal(t, 2100000.0, items[0].Price)
	assert.Equal(t, 5200000.0, items[1].Price)
	assert.Equal(t, "bristol", items[1].Source)
}

// testdata/precios.xls: a title row, the header on row 2, then two products
// separated by a row the sheet does not store.
func TestReadXLS(t *testing.T) {
	f, err := os.Open("testdata/precios.xls")
	require.NoError(t, err)
	defer f.Close()

	rows, err := ReadAnyMaps(f, "precios.XLS", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{
		"Descripción":    "Split Midea 9000 BTU",
		"Precio Contado": "2100000",
		"Marca":          "Midea",
	}, rows[0])
	assert.Equal(t, "5.200.000", rows[1]["Precio Contado"])
	assert.Equal(t, "", rows[1]["Marca"])

	items, err := ToItems(rows, model.Mapping{HeaderRow: 2}, "bristol")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Split Midea 24000 BTU", items[1].Name)
	assert.Equal(t, 5200000.0, items[1].Price)
}

func TestComputeMaxCols_SkipsMissingRows(t *testing.T) {
	b, err := os.ReadFile("testdata/precios.xls")
	require.NoError(t, err)
	wb, err := xls.OpenReader(bytes.NewReader(b), xlsCharsets[0])
	require.NoError(t, err)
	sheet := wb.GetSheet(0)
	require.NotNil(t, sheet)

	assert.Nil(t, sheetRow(sheet, 3))
	assert.Equal(t, 3, computeMaxCols(sheet))
}

func TestReadXLS_Errors(t *testing.T) {
	_, err := readXLS(strings.NewReader("irrelevant"), 0)
	assert.EqualError(t, err, "headerRow must be 1-based and >= 1")

	_, err = ReadAnyMaps(strings.NewReader(strings.Repeat("not a workbook ", 64)), "a.xls", 1)
	assert.Error(t, err)

	_, err = ReadAnyMaps(strings.NewReader(""), "empty.xls", 1)
	assert.Error(t, err)
}

func TestReadAnyMaps_Unsupported(t *testing.T) {
	_, err := ReadAnyMaps(strings.NewReader(""), "notes.pdf", 1)
	assert.Error(t, err)
}

func TestResolveKey(t *testing.T) {
	rec := map[string]string{
		"Código":            "",
		"Descripción Larga": "",
		"Precio Contado":    "",
		"Marca":             "",
	}
	cases := []struct {
		want string
		exp  string
	}{
		{"Marca", "Marca"},
		{"marca", "Marca"},
		{"descripcion", "Descripción Larga"},
		{"nombre|precio", "Precio Contado"},
		{"codigo", "Código"},
		{"stock", ""},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.exp, ResolveKey(rec, c.want), c.want)
	}
}

func TestToItems(t *testing.T) {
	rows := []map[string]string{
		{"Producto": "Split A 12000 BTU", "Precio": "Gs. 3.500.000"},
		{"Producto": "Producto", "Precio": "Precio"},
		{"Producto": "", "Precio": "100"},
		{"Producto": "Split B 12000 BTU", "Precio": "Consultar"},
	}
	items, err := ToItems(rows, model.Mapping{}, "a")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 3500000.0, items[0].Price)
	assert.Equal(t, "Split B 12000 BTU", items[1].Name)
	assert.Zero(t, items[1].Price)

	_, err = ToItems([]map[string]string{{"foo": "bar"}}, model.Mapping{NameKey: "modelo"}, "a")
	assert.Error(t, err)

	empty, err := ToItems(nil, model.Mapping{}, "a")
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
