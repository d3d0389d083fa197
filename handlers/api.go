package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"cookbook/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	detailNotFound = "Рецепт не найден"
	detailConflict = "Рецепт с таким названием уже существует"
	detailInternal = "internal server error"
)

// recipeCreateRequest ist der JSON-Body von POST /api/recipes. Zeiger unterscheiden
// fehlende Felder von Nullwerten.
type recipeCreateRequest struct {
	Name        *string  `json:"name" binding:"required,notblank"`
	CookTime    *int     `json:"cook_time" binding:"required"`
	Description *string  `json:"description" binding:"required"`
	Ingredients []string `json:"ingredients" binding:"required"`
}

type recipeCreatedResponse struct {
	ID uint `json:"id"`
}

// fieldError ist das einzige Element-Format aller 422-Antworten.
type fieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

var ruleMessages = map[string]string{
	"required": "обязательное поле",
	"notblank": "не может быть пустым",
}

func setupAPIRoutes(router *gin.Engine, store RecipeStore, log *zap.Logger) {
	rg := router.Group("/api/recipes")

	rg.GET("", func(c *gin.Context) {
		recipes, err := store.List(c.Request.Context())
		if err != nil {
			log.Error("Database query for recipe list failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": detailInternal})
			return
		}
		c.JSON(http.StatusOK, recipes)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, err := parseID(c)
		if errors.Is(err, errInvalidID) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []fieldError{{Field: "id", Msg: "должно быть целым числом"}}})
			return
		}

		var recipe *services.RecipeDetail
		if err == nil {
			recipe, err = store.GetAndIncrementView(c.Request.Context(), id)
		}
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"detail": detailNotFound})
				return
			}
			log.Error("Database error while fetching recipe", zap.Uint("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": detailInternal})
			return
		}
		c.JSON(http.StatusOK, recipe)
	})

	rg.POST("", func(c *gin.Context) {
		var req recipeCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Info("Invalid request body for recipe creation", zap.Error(err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": bindingErrorDetail(err)})
			return
		}

		recipe, err := services.NormalizeRecipe(services.RecipeInput{
			Name:        *req.Name,
			CookTime:    *req.CookTime,
			Description: *req.Description,
			Ingredients: req.Ingredients,
		}, services.NormalizeOptions{})
		if err != nil {
			var verr *services.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": validationDetail(verr)})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": detailInternal})
			return
		}

		id, err := store.Create(c.Request.Context(), recipe)
		if err != nil {
			if errors.Is(err, services.ErrConflict) {
				c.JSON(http.StatusConflict, gin.H{"detail": detailConflict})
				return
			}
			log.Error("Failed to create recipe", zap.String("name", recipe.Name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": detailInternal})
			return
		}

		log.Info("Recipe created successfully", zap.Uint("id", id), zap.String("name", recipe.Name))
		c.JSON(http.StatusCreated, recipeCreatedResponse{ID: id})
	})
}

// bindingErrorDetail übersetzt Bind-Fehler in Feld/Meldung-Paare.
func bindingErrorDetail(err error) []fieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			msg, ok := ruleMessages[fe.Tag()]
			if !ok {
				msg = fe.Tag()
			}
			out = append(out, fieldError{Field: fe.Field(), Msg: msg})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []fieldError{{Field: typeErr.Field, Msg: "неверный тип, ожидается " + typeErr.Type.String()}}
	}
	return []fieldError{{Field: "body", Msg: err.Error()}}
}

func validationDetail(verr *services.ValidationError) []fieldError {
	fields := make([]string, 0, len(verr.Fields))
	for field := range verr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]fieldError, 0, len(fields))
	for _, field := range fields {
		out = append(out, fieldError{Field: field, Msg: verr.Fields[field]})
	}
	return out
}
