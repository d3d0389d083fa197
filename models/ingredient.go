package models

// Ingredient ist eine Zutat eines Rezepts. (recipe_id, name) ist eindeutig.
type Ingredient struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"not null;uniqueIndex:idx_ingredients_recipe_name,priority:2"`
	RecipeID uint   `json:"recipe_id" gorm:"not null;index;uniqueIndex:idx_ingredients_recipe_name,priority:1"`
}

// TableName gibt explizit den Tabellennamen an.
func (Ingredient) TableName() string {
	return "ingredients"
}
