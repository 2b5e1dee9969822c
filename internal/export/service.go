package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/menulens/menu-digitizer/internal/repository"
)

// Service produces XLSX bytes for a digitized job's menu, for venue owners who
// want the structured result outside the app.
type Service struct {
	menu   repository.MenuRepository
	logger *slog.Logger
}

func NewService(menu repository.MenuRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{menu: menu, logger: logger}
}

// ExportMenuXLSX returns an XLSX workbook (as bytes) for the given job.
func (s *Service) ExportMenuXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	start := time.Now()

	sections, err := s.menu.ListMenu(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Menu"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Category (EN)",
		"Category (RU)",
		"Item",
		"Item (EN)",
		"Item (RU)",
		"Price",
		"Currency",
		"Spicy",
		"Local Special",
		"Calories",
		"Description (EN)",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	items := 0
	for _, section := range sections {
		for _, it := range section.Items {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}

			write(1, section.Category.NameEn)
			write(2, section.Category.NameRu)
			write(3, it.OriginalName)
			write(4, it.NameEn)
			write(5, it.NameRu)
			if it.PriceValue != nil {
				write(6, *it.PriceValue)
			}
			write(7, it.PriceCurrency)
			write(8, it.IsSpicy)
			write(9, it.IsLocalSpecial)
			if it.ApproxCalories != nil {
				write(10, *it.ApproxCalories)
			}
			if it.DescriptionEn != nil {
				write(11, truncate(*it.DescriptionEn, 140))
			}

			row++
			items++
		}
	}

	_ = f.SetColWidth(sheet, "A", "B", 22)
	_ = f.SetColWidth(sheet, "C", "E", 28)
	_ = f.SetColWidth(sheet, "F", "G", 12)
	_ = f.SetColWidth(sheet, "H", "J", 10)
	_ = f.SetColWidth(sheet, "K", "K", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"job_id", jobID.String(),
		"categories", len(sections),
		"items", items,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// truncate caps s at n runes, never splitting a multi-byte character.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
