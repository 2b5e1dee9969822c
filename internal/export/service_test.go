package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/menulens/menu-digitizer/internal/entity"
	"github.com/menulens/menu-digitizer/internal/llm"
	"github.com/menulens/menu-digitizer/internal/repository"
)

type fakeMenu struct {
	sections []repository.MenuView
}

func (f *fakeMenu) ReplaceMenu(context.Context, uuid.UUID, uuid.UUID, llm.StructuredMenu) error {
	panic("not used")
}

func (f *fakeMenu) ListMenu(context.Context, uuid.UUID) ([]repository.MenuView, error) {
	return f.sections, nil
}

func TestExportMenuXLSX(t *testing.T) {
	price := int64(45000)
	desc := "Fried rice with chicken and a fried egg on top"
	sections := []repository.MenuView{
		{
			Category: entity.Category{NameEn: "Mains", NameRu: "Основные блюда"},
			Items: []entity.Item{
				{
					OriginalName:   "Nasi Goreng",
					NameEn:         "Fried Rice",
					NameRu:         "Жареный рис",
					DescriptionEn:  &desc,
					PriceValue:     &price,
					PriceCurrency:  "IDR",
					IsSpicy:        true,
					IsLocalSpecial: true,
				},
			},
		},
		{
			Category: entity.Category{NameEn: "Drinks", NameRu: "Напитки"},
			Items: []entity.Item{
				{OriginalName: "Es Teh", NameEn: "Iced Tea", NameRu: "Холодный чай", PriceCurrency: "IDR"},
			},
		},
	}

	svc := NewService(&fakeMenu{sections: sections}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	data, err := svc.ExportMenuXLSX(context.Background(), uuid.New())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Menu"}, f.GetSheetList())

	header, err := f.GetCellValue("Menu", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Category (EN)", header)

	cat, _ := f.GetCellValue("Menu", "A2")
	assert.Equal(t, "Mains", cat)
	name, _ := f.GetCellValue("Menu", "C2")
	assert.Equal(t, "Nasi Goreng", name)
	priceCell, _ := f.GetCellValue("Menu", "F2")
	assert.Equal(t, "45000", priceCell)
	currency, _ := f.GetCellValue("Menu", "G2")
	assert.Equal(t, "IDR", currency)
	spicy, _ := f.GetCellValue("Menu", "H2")
	assert.Equal(t, "TRUE", spicy)

	drink, _ := f.GetCellValue("Menu", "C3")
	assert.Equal(t, "Es Teh", drink)
	emptyPrice, _ := f.GetCellValue("Menu", "F3")
	assert.Empty(t, emptyPrice)
}

func TestExportMenuXLSXEmptyMenu(t *testing.T) {
	svc := NewService(&fakeMenu{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	data, err := svc.ExportMenuXLSX(context.Background(), uuid.New())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Menu")
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abc", truncate("abc", 3))
	long := truncate("abcdefghij", 5)
	assert.Equal(t, "abcd…", long)
	assert.Equal(t, "abcdefghij", truncate("abcdefghij", 0))
}

func TestTruncateRuneBoundaries(t *testing.T) {
	got := truncate("Жареный рис с курицей", 10)
	assert.Equal(t, "Жареный р…", got)
	assert.True(t, utf8.ValidString(got))

	// Multi-byte string already within the rune budget stays intact.
	assert.Equal(t, "Жареный", truncate("Жареный", 7))
}
