package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cookbook/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	formErrorInvalid  = "Заполните все поля корректно (время готовки > 0, список ингредиентов не пустой)."
	formErrorConflict = "Рецепт с таким названием уже существует."
)

// formValues werden bei Fehlern unverändert ins Formular zurückgeschrieben.
type formValues struct {
	Name        string
	CookTime    string
	Description string
	Ingredients string
}

type formPage struct {
	Values formValues
	Error  string
}

type listRow struct {
	services.RecipeSummary
	Link string
}

type detailPage struct {
	Recipe      *services.RecipeDetail
	Ingredients string
}

func setupHTMLRoutes(router *gin.Engine, store RecipeStore, log *zap.Logger) {
	rg := router.Group("/recipes")

	rg.GET("/new", func(c *gin.Context) {
		c.HTML(http.StatusOK, "recipe_form.html", formPage{})
	})

	rg.GET("", func(c *gin.Context) {
		recipes, err := store.List(c.Request.Context())
		if err != nil {
			log.Error("Database query for recipe page failed", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": "Ошибка сервера"})
			return
		}
		rows := make([]listRow, 0, len(recipes))
		for _, r := range recipes {
			rows = append(rows, listRow{RecipeSummary: r, Link: detailURL(r.ID)})
		}
		c.HTML(http.StatusOK, "recipes.html", gin.H{"Rows": rows})
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			c.HTML(http.StatusNotFound, "error.html", gin.H{"Message": "Рецепт не найден"})
			return
		}

		recipe, err := store.GetAndIncrementView(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.HTML(http.StatusNotFound, "error.html", gin.H{"Message": "Рецепт не найден"})
				return
			}
			log.Error("Database error while rendering recipe", zap.Uint("id", id), zap.Error(err))
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": "Ошибка сервера"})
			return
		}
		c.HTML(http.StatusOK, "recipe_detail.html", detailPage{
			Recipe:      recipe,
			Ingredients: strings.Join(recipe.Ingredients, ", "),
		})
	})

	rg.POST("", func(c *gin.Context) {
		values := formValues{
			Name:        c.PostForm("name"),
			CookTime:    strings.TrimSpace(c.PostForm("cook_time")),
			Description: strings.TrimSpace(c.PostForm("description")),
			Ingredients: strings.TrimSpace(c.PostForm("ingredients")),
		}

		// nicht parsbare Zahl wird wie 0 behandelt und scheitert an der Regel > 0
		cookTime, _ := strconv.Atoi(values.CookTime)

		recipe, err := services.NormalizeRecipe(services.RecipeInput{
			Name:        values.Name,
			CookTime:    cookTime,
			Description: values.Description,
			Ingredients: services.SplitIngredients(values.Ingredients),
		}, services.NormalizeOptions{RequireIngredients: true})
		if err != nil {
			c.HTML(http.StatusBadRequest, "recipe_form.html", formPage{Values: values, Error: formErrorInvalid})
			return
		}

		id, err := store.Create(c.Request.Context(), recipe)
		if err != nil {
			if errors.Is(err, services.ErrConflict) {
				c.HTML(http.StatusBadRequest, "recipe_form.html", formPage{Values: values, Error: formErrorConflict})
				return
			}
			log.Error("Failed to create recipe from form", zap.String("name", recipe.Name), zap.Error(err))
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": "Ошибка сервера"})
			return
		}

		log.Info("Recipe created from form", zap.Uint("id", id), zap.String("name", recipe.Name))
		c.Redirect(http.StatusSeeOther, detailURL(id))
	})
}

func detailURL(id uint) string {
	return "/recipes/" + strconv.FormatUint(uint64(id), 10)
}
