package services

import (
	"strings"

	"cookbook/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// RecipeInput ist die rohe Eingabe eines Rezepts, egal ob aus JSON oder Formular.
type RecipeInput struct {
	Name        string
	CookTime    int
	Description string
	Ingredients []string
}

// NormalizeOptions steuern, welche Geschäftsregeln zusätzlich gelten.
type NormalizeOptions struct {
	// RequireIngredients verlangt mindestens eine Zutat nach dem Bereinigen (Formular-Pfad).
	RequireIngredients bool
}

// NormalizeRecipe trimmt und prüft die Eingabe und baut daraus ein noch nicht gespeichertes Rezept.
func NormalizeRecipe(in RecipeInput, opts NormalizeOptions) (*models.Recipe, error) {
	verr := &ValidationError{}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.add("name", "название не может быть пустым")
	}
	if in.CookTime < 1 {
		verr.add("cook_time", "время готовки должно быть больше 0")
	}
	names := DedupIngredients(in.Ingredients)
	if opts.RequireIngredients && len(names) == 0 {
		verr.add("ingredients", "список ингредиентов не может быть пустым")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		Name:        name,
		CookTime:    in.CookTime,
		Description: strings.TrimSpace(in.Description),
		Ingredients: make([]models.Ingredient, 0, len(names)),
	}
	for _, n := range names {
		recipe.Ingredients = append(recipe.Ingredients, models.Ingredient{Name: n})
	}
	return recipe, nil
}

// SplitIngredients zerlegt Freitext aus dem Formular erst in Zeilen, dann jede Zeile an Kommas.
func SplitIngredients(raw string) []string {
	var parts []string
	for _, line := range splitLines(raw) {
		parts = append(parts, strings.Split(line, ",")...)
	}
	return parts
}

// DedupIngredients trimmt die Namen, verwirft leere und entfernt Dubletten ohne Rücksicht auf
// Groß-/Kleinschreibung. Die erste Schreibweise und die Reihenfolge bleiben erhalten.
func DedupIngredients(candidates []string) []string {
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		name := strings.TrimSpace(c)
		if name == "" {
			continue
		}
		key := fold.String(norm.NFC.String(name))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

func splitLines(s string) []string {
	return strings.FieldsFunc(s, isLineBreak)
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
