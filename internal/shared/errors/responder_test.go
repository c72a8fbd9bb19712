package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errShort = errors.New("short")

func serve(t *testing.T, r *ChainedResponder, err error) (*httptest.ResponseRecorder, ProblemDetail) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/checkout", nil)
	r.RespondError(c, err)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestChainedResponder_UsesFirstMatchingMapper(t *testing.T) {
	r := NewChainedResponder("https://medstore.example", func(err error) (ProblemDetail, bool) {
		if errors.Is(err, errShort) {
			return NewOutOfStockProblem([]string{"Gauze", "Syringe"}), true
		}
		return ProblemDetail{}, false
	})

	w, body := serve(t, r, errShort)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ContentTypeProblemJSON, w.Header().Get("Content-Type"))
	assert.Equal(t, "https://medstore.example/problems/out-of-stock", body.Type)
	assert.Equal(t, "/v1/checkout", body.Instance)
	assert.Equal(t, []any{"Gauze", "Syringe"}, body.Extensions["products"])
}

func TestChainedResponder_HidesUnknownErrors(t *testing.T) {
	w, body := serve(t, NewChainedResponder(""), errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "unexpected error", body.Detail)
}

func TestResponder_ValidationFailedListsFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/v1/admin/products/3", nil)
	DefaultResponder.ValidationFailed(c, map[string]string{"name": "required"})

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, TypeValidation, body.Type)
	assert.Equal(t, map[string]any{"name": "required"}, body.Extensions["fields"])
	assert.True(t, c.IsAborted())
}

func TestNewNotFoundProblem_OmitsIdentifier(t *testing.T) {
	p := NewNotFoundProblem("cartItem", "cart item")
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, "cart item not found", p.Detail)
	assert.Equal(t, "cartItem", p.Extensions["resourceType"])
}
