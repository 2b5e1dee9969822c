package repository

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/menulens/menu-digitizer/internal/entity"
	"github.com/menulens/menu-digitizer/internal/llm"
)

// MenuView is one category with its items, both in display order.
type MenuView struct {
	Category entity.Category
	Items    []entity.Item
}

type MenuRepository interface {
	// ReplaceMenu rewrites the job's categories and items wholesale in one
	// transaction. Display order is the array position of the structured menu.
	ReplaceMenu(ctx context.Context, jobID, venueID uuid.UUID, menu llm.StructuredMenu) error
	ListMenu(ctx context.Context, jobID uuid.UUID) ([]MenuView, error)
}

type menuRepo struct {
	db  DB
	log *slog.Logger
}

func NewMenuRepository(db DB, log *slog.Logger) MenuRepository {
	if log == nil {
		log = slog.Default()
	}
	return &menuRepo{db: db, log: log}
}

func (r *menuRepo) ReplaceMenu(ctx context.Context, jobID, venueID uuid.UUID, menu llm.StructuredMenu) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM menu_items WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM menu_categories WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}

	items := 0
	for ci, cat := range menu.Categories {
		catID := uuid.New()
		query, args, err := psql.Insert("menu_categories").
			Columns("id", "job_id", "venue_id", "name_en", "name_original", "name_ru", "position").
			Values(catID, jobID, venueID, cat.NameEn, cat.NameOriginal, cat.NameRu, ci).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert category %d: %w", ci, err)
		}

		for ii, it := range cat.Items {
			query, args, err := psql.Insert("menu_items").
				Columns("id", "category_id", "job_id", "venue_id",
					"original_name", "name_en", "name_ru",
					"description_en", "description_ru",
					"price_value", "price_currency",
					"is_spicy", "approx_calories", "is_local_special", "position").
				Values(uuid.New(), catID, jobID, venueID,
					it.OriginalName, it.NameEn, it.NameRu,
					it.DescriptionEn, it.DescriptionRu,
					it.PriceValue, it.PriceCurrency,
					it.IsSpicy, it.ApproxCalories, it.IsLocalSpecial, ii).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("insert item %d/%d: %w", ci, ii, err)
			}
			items++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Info("menu replaced", "job_id", jobID, "categories", len(menu.Categories), "items", items)
	return nil
}

func (r *menuRepo) ListMenu(ctx context.Context, jobID uuid.UUID) ([]MenuView, error) {
	query, args, err := psql.Select("id", "job_id", "venue_id", "name_en", "name_original", "name_ru", "position").
		From("menu_categories").
		Where(sq.Eq{"job_id": jobID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var cats []entity.Category
	if err := pgxscan.ScanAll(&cats, rows); err != nil {
		return nil, err
	}

	query, args, err = psql.Select("id", "category_id", "job_id", "venue_id",
		"original_name", "name_en", "name_ru", "description_en", "description_ru",
		"price_value", "price_currency", "is_spicy", "approx_calories", "is_local_special", "position").
		From("menu_items").
		Where(sq.Eq{"job_id": jobID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err = r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var items []entity.Item
	if err := pgxscan.ScanAll(&items, rows); err != nil {
		return nil, err
	}

	byCategory := make(map[uuid.UUID][]entity.Item, len(cats))
	for _, it := range items {
		byCategory[it.CategoryID] = append(byCategory[it.CategoryID], it)
	}
	views := make([]MenuView, len(cats))
	for i, c := range cats {
		views[i] = MenuView{Category: c, Items: byCategory[c.ID]}
	}
	return views, nil
}
