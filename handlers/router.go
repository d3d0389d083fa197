package handlers

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"cookbook/metrics"
	"cookbook/models"
	"cookbook/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// RecipeStore sind die Repository-Operationen, die beide Oberflächen nutzen.
type RecipeStore interface {
	List(ctx context.Context) ([]services.RecipeSummary, error)
	GetAndIncrementView(ctx context.Context, id uint) (*services.RecipeDetail, error)
	Create(ctx context.Context, recipe *models.Recipe) (uint, error)
}

// Options steuern den optionalen Teil des Routers.
type Options struct {
	// StaticDir wird unter /static ausgeliefert, leer = aus.
	StaticDir string
	// Ping prüft die Datenbank für /healthz, nil = immer gesund.
	Ping func(ctx context.Context) error
}

// NewRouter baut die gin-Engine mit JSON-API, HTML-Seiten, /metrics und /healthz.
func NewRouter(store RecipeStore, log *zap.Logger, opts Options) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	router := gin.New()
	router.Use(requestLogger(log), gin.Recovery(), metrics.GinMiddleware())
	router.SetHTMLTemplate(tmpl)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.StaticDir != "" {
		router.Static("/static", opts.StaticDir)
	}

	setupHealthRoutes(router, opts.Ping)
	setupAPIRoutes(router, store, log)
	setupHTMLRoutes(router, store, log)

	return router, nil
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators hängt notblank und JSON-Feldnamen an gins Validator.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			registerErr = fmt.Errorf("register notblank validator: %w", err)
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return registerErr
}

func setupHealthRoutes(router *gin.Engine, ping func(ctx context.Context) error) {
	router.GET("/healthz", func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

var errInvalidID = errors.New("id is not an integer")

// parseID liest den :id-Parameter. Nicht-Ganzzahlen liefern errInvalidID, negative oder zu
// große Ganzzahlen services.ErrNotFound, da es solche Rezepte nicht geben kann.
func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, services.ErrNotFound
		}
		return 0, errInvalidID
	}
	if id < 0 || uint64(id) > uint64(^uint(0)) {
		return 0, services.ErrNotFound
	}
	return uint(id), nil
}
