package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"cookbook/models"
	"cookbook/services"
	"cookbook/storage/storagetest"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (*gin.Engine, *services.RecipeRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := services.NewRecipeRepository(storagetest.NewDB(t), zap.NewNop())
	router, err := NewRouter(repo, zap.NewNop(), Options{})
	require.NoError(t, err)
	return router, repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createViaAPI(t *testing.T, router http.Handler, name string, cookTime int, ingredients ...string) uint {
	t.Helper()
	if ingredients == nil {
		ingredients = []string{}
	}
	rec := doJSON(t, router, http.MethodPost, "/api/recipes", gin.H{
		"name":        name,
		"cook_time":   cookTime,
		"description": "desc",
		"ingredients": ingredients,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created recipeCreatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	return created.ID
}

func TestAPIEndToEnd(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/recipes", gin.H{
		"name":        "Тест",
		"cook_time":   7,
		"description": "d",
		"ingredients": []string{"Хлеб", "Соль"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	idFloat, ok := created["id"].(float64)
	require.True(t, ok, "id must be a number, got %v", created["id"])
	id := uint(idFloat)

	rec = doJSON(t, router, http.MethodGet, "/api/recipes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []services.RecipeSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	rec = doJSON(t, router, http.MethodGet, "/api/recipes/"+strconv.Itoa(int(id)), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail services.RecipeDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, 1, detail.Views)
	assert.Equal(t, "Тест", detail.Name)
	assert.Equal(t, 7, detail.CookTime)
	assert.Equal(t, "d", detail.Description)
	assert.Equal(t, []string{"Хлеб", "Соль"}, detail.Ingredients)
}

func TestAPIListFieldsAndOrder(t *testing.T) {
	router, _ := newTestRouter(t)

	slow := createViaAPI(t, router, "Медленно", 50)
	fast := createViaAPI(t, router, "Быстро", 5)
	viewed := createViaAPI(t, router, "Смотрят", 100)
	doJSON(t, router, http.MethodGet, "/api/recipes/"+strconv.Itoa(int(viewed)), nil)

	rec := doJSON(t, router, http.MethodGet, "/api/recipes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw, 3)
	for _, item := range raw {
		assert.ElementsMatch(t, []string{"id", "name", "views", "cook_time"}, keys(item))
	}

	var list []services.RecipeSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []uint{viewed, fast, slow}, []uint{list[0].ID, list[1].ID, list[2].ID})
}

func TestAPIListEmptyIsArray(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/recipes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAPIGetIncrementsViews(t *testing.T) {
	router, repo := newTestRouter(t)
	id := createViaAPI(t, router, "Омлет", 5, "Яйца")

	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, http.MethodGet, "/api/recipes/"+strconv.Itoa(int(id)), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Views)
}

func TestAPIGetNotFound(t *testing.T) {
	router, repo := newTestRouter(t)
	id := createViaAPI(t, router, "Суп", 30)

	rec := doJSON(t, router, http.MethodGet, "/api/recipes/"+strconv.Itoa(int(id)+1000), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Рецепт не найден"}`, rec.Body.String())

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Zero(t, list[0].Views)
}

func TestAPIGetInvalidID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/recipes/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"detail":[{"field":"id","msg":"должно быть целым числом"}]}`, rec.Body.String())
}

func TestAPIGetIntegerIDsWithoutRecipe(t *testing.T) {
	router, _ := newTestRouter(t)
	createViaAPI(t, router, "Единственный", 5)

	for _, path := range []string{
		"/api/recipes/-1",
		"/api/recipes/0",
		"/api/recipes/9223372036854775808",
		"/api/recipes/-99999999999999999999",
	} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"detail":"Рецепт не найден"}`, rec.Body.String(), path)
	}
}

func TestAPICreateConflict(t *testing.T) {
	router, repo := newTestRouter(t)
	createViaAPI(t, router, "Омлет", 5)

	rec := doJSON(t, router, http.MethodPost, "/api/recipes", gin.H{
		"name":        " Омлет ",
		"cook_time":   10,
		"description": "",
		"ingredients": []string{},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"detail":"Рецепт с таким названием уже существует"}`, rec.Body.String())

	var count int64
	require.NoError(t, repo.DB.Model(&models.Recipe{}).Where("name = ?", "Омлет").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAPICreateDedupesIngredients(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createViaAPI(t, router, "Бутерброд", 2, "Хлеб", "хлеб", "Соль", " ")

	rec := doJSON(t, router, http.MethodGet, "/api/recipes/"+strconv.Itoa(int(id)), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail services.RecipeDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, []string{"Хлеб", "Соль"}, detail.Ingredients)
}

func TestAPICreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"name":`},
		{name: "missing name", body: `{"cook_time":5,"description":"d","ingredients":[]}`},
		{name: "blank name", body: `{"name":"   ","cook_time":5,"description":"d","ingredients":[]}`},
		{name: "missing cook_time", body: `{"name":"x","description":"d","ingredients":[]}`},
		{name: "cook_time not int", body: `{"name":"x","cook_time":"soon","description":"d","ingredients":[]}`},
		{name: "zero cook_time", body: `{"name":"x","cook_time":0,"description":"d","ingredients":[]}`},
		{name: "missing description", body: `{"name":"x","cook_time":5,"ingredients":[]}`},
		{name: "missing ingredients", body: `{"name":"x","cook_time":5,"description":"d"}`},
		{name: "ingredients not strings", body: `{"name":"x","cook_time":5,"description":"d","ingredients":[1,2]}`},
	}

	router, repo := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/recipes", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), "detail")
		})
	}

	var count int64
	require.NoError(t, repo.DB.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAPICreateValidationNamesJSONField(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/recipes", gin.H{"name": "x", "description": "d", "ingredients": []string{}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"detail":[{"field":"cook_time","msg":"обязательное поле"}]}`, rec.Body.String())
}

func TestAPIValidationErrorsShareOneShape(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []string{
		`{"name":`,
		`{"name":"x","cook_time":"soon","description":"d","ingredients":[]}`,
		`{"name":"   ","cook_time":5,"description":"d","ingredients":[]}`,
		`{"name":"x","cook_time":0,"description":"d","ingredients":[]}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/recipes", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)

		var resp struct {
			Detail []fieldError `json:"detail"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
		require.NotEmpty(t, resp.Detail, body)
		for _, item := range resp.Detail {
			assert.NotEmpty(t, item.Field, body)
			assert.NotEmpty(t, item.Msg, body)
		}
	}
}

func TestAPICookTimeTypeErrorNamesField(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/recipes",
		bytes.NewBufferString(`{"name":"x","cook_time":"soon","description":"d","ingredients":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"cook_time"`)
}

func TestRegisterValidatorsIsRepeatable(t *testing.T) {
	require.NoError(t, RegisterValidators())
	require.NoError(t, RegisterValidators())

	type namedInput struct {
		Name *string `json:"name" binding:"required,notblank"`
	}
	blank := "  "
	err := binding.Validator.ValidateStruct(&namedInput{Name: &blank})
	require.Error(t, err)
	assert.Contains(t, bindingErrorDetail(err), fieldError{Field: "name", Msg: "не может быть пустым"})
}

func TestAPIAllowsEmptyIngredientList(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createViaAPI(t, router, "Вода "+uuid.NewString()[:6], 1)

	rec := doJSON(t, router, http.MethodGet, "/api/recipes/"+strconv.Itoa(int(id)), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ingredients":[]`)
}

// failingStore simuliert eine kaputte Datenbank.
type failingStore struct{ err error }

func (f failingStore) List(context.Context) ([]services.RecipeSummary, error) { return nil, f.err }

func (f failingStore) GetAndIncrementView(context.Context, uint) (*services.RecipeDetail, error) {
	return nil, f.err
}

func (f failingStore) Create(context.Context, *models.Recipe) (uint, error) { return 0, f.err }

func TestAPIInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, err := NewRouter(failingStore{err: errors.New("connection refused")}, zap.NewNop(), Options{})
	require.NoError(t, err)

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/recipes", nil},
		{http.MethodGet, "/api/recipes/1", nil},
		{http.MethodPost, "/api/recipes", gin.H{"name": "x", "cook_time": 1, "description": "", "ingredients": []string{}}},
	} {
		rec := doJSON(t, router, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.method+" "+tc.path)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	}
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	healthy, err := NewRouter(failingStore{}, zap.NewNop(), Options{Ping: func(context.Context) error { return nil }})
	require.NoError(t, err)
	rec := doJSON(t, healthy, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	broken, err := NewRouter(failingStore{}, zap.NewNop(), Options{Ping: func(context.Context) error { return errors.New("down") }})
	require.NoError(t, err)
	rec = doJSON(t, broken, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	createViaAPI(t, router, "Метрики", 3)

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cookbook_recipes_created_total")
	assert.Contains(t, rec.Body.String(), `cookbook_http_requests_total{method="POST",path="/api/recipes",status="201"}`)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
