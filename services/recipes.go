package services

import (
	"context"
	"errors"
	"fmt"

	"cookbook/metrics"
	"cookbook/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sortierung der Liste: beliebteste zuerst, dann schnellste, dann stabil nach ID.
const listOrder = "views desc, cook_time asc, id asc"

// RecipeSummary ist eine Zeile der Rezeptliste.
type RecipeSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Views    int    `json:"views"`
	CookTime int    `json:"cook_time"`
}

// RecipeDetail ist ein Rezept mit allen Zutaten.
type RecipeDetail struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Views       int      `json:"views"`
	CookTime    int      `json:"cook_time"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
}

func newRecipeDetail(r *models.Recipe) RecipeDetail {
	return RecipeDetail{
		ID:          r.ID,
		Name:        r.Name,
		Views:       r.Views,
		CookTime:    r.CookTime,
		Description: r.Description,
		Ingredients: r.IngredientNames(),
	}
}

// RecipeRepository kapselt alle Abfragen und Transaktionen auf recipes/ingredients.
type RecipeRepository struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewRecipeRepository erstellt eine neue Instanz des RecipeRepository.
func NewRecipeRepository(db *gorm.DB, logger *zap.Logger) *RecipeRepository {
	return &RecipeRepository{DB: db, Logger: logger}
}

// List liefert alle Rezepte ohne Zutaten, sortiert nach listOrder.
func (r *RecipeRepository) List(ctx context.Context) ([]RecipeSummary, error) {
	recipes := make([]RecipeSummary, 0)
	err := r.DB.WithContext(ctx).
		Model(&models.Recipe{}).
		Select("id", "name", "views", "cook_time").
		Order(listOrder).
		Scan(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// GetAndIncrementView erhöht den Zähler und liest danach das Rezept samt Zutaten.
// Das UPDATE wird unabhängig vom Ergebnis des Lesens committet.
func (r *RecipeRepository) GetAndIncrementView(ctx context.Context, id uint) (*RecipeDetail, error) {
	db := r.DB.WithContext(ctx)

	var affected int64
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Recipe{}).
			Where("id = ?", id).
			UpdateColumn("views", gorm.Expr("views + ?", 1))
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return nil, fmt.Errorf("increment views of recipe %d: %w", id, err)
	}
	if affected > 0 {
		metrics.RecipeViews.Inc()
	}

	var recipe models.Recipe
	err = db.Preload("Ingredients", orderIngredients).First(&recipe, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load recipe %d: %w", id, err)
	}

	detail := newRecipeDetail(&recipe)
	return &detail, nil
}

// Create speichert Rezept und Zutaten in einer Transaktion und gibt die neue ID zurück.
// Eingaben müssen vorher durch NormalizeRecipe gelaufen sein.
func (r *RecipeRepository) Create(ctx context.Context, recipe *models.Recipe) (uint, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Ingredients").Create(recipe).Error; err != nil {
			return err
		}
		if len(recipe.Ingredients) == 0 {
			return nil
		}
		for i := range recipe.Ingredients {
			recipe.Ingredients[i].RecipeID = recipe.ID
		}
		return tx.Create(&recipe.Ingredients).Error
	})
	if err != nil {
		recipe.ID = 0
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.Logger.Info("Recipe rejected by unique constraint", zap.String("name", recipe.Name))
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("create recipe %q: %w", recipe.Name, err)
	}

	metrics.RecipesCreated.Inc()
	return recipe.ID, nil
}

// Delete entfernt ein Rezept mitsamt seinen Zutaten.
func (r *RecipeRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// nicht auf ON DELETE CASCADE verlassen, SQLite ohne foreign_keys ignoriert es
		if err := tx.Where("recipe_id = ?", id).Delete(&models.Ingredient{}).Error; err != nil {
			return fmt.Errorf("delete ingredients of recipe %d: %w", id, err)
		}
		res := tx.Delete(&models.Recipe{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete recipe %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Export liefert den kompletten Katalog inklusive Zutaten in Listenreihenfolge.
func (r *RecipeRepository) Export(ctx context.Context) ([]RecipeDetail, error) {
	var recipes []models.Recipe
	err := r.DB.WithContext(ctx).
		Preload("Ingredients", orderIngredients).
		Order(listOrder).
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("export recipes: %w", err)
	}

	out := make([]RecipeDetail, 0, len(recipes))
	for i := range recipes {
		out = append(out, newRecipeDetail(&recipes[i]))
	}
	return out, nil
}

// Zutaten in Einfügereihenfolge
func orderIngredients(db *gorm.DB) *gorm.DB {
	return db.Order("ingredients.id asc")
}
