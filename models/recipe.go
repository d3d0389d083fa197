package models

// Recipe repräsentiert ein Gericht im Katalog.
type Recipe struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	Views       int    `json:"views" gorm:"not null;default:0"`
	CookTime    int    `json:"cook_time" gorm:"not null"` // Minuten
	Description string `json:"description" gorm:"type:text;not null;default:''"`

	// Zutaten gehören exklusiv zum Rezept und werden mit ihm gelöscht.
	Ingredients []Ingredient `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName gibt explizit den Tabellennamen an.
func (Recipe) TableName() string {
	return "recipes"
}

// IngredientNames liefert die Zutatennamen in gespeicherter Reihenfolge.
func (r *Recipe) IngredientNames() []string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	return names
}
