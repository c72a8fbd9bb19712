package medstoreserver

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// bindIDParam binds a positive int64 path parameter, answering 400 itself on failure.
func bindIDParam(c *gin.Context, name string) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err == nil && id <= 0 {
		err = fmt.Errorf("%s must be greater than zero", name)
	}
	if err != nil {
		respondBadRequest(c, err)
		return 0, false
	}
	return id, true
}

// bindOptionalIDQuery binds an optional positive int64 query parameter.
func bindOptionalIDQuery(c *gin.Context, name string) (*int64, bool) {
	var id *int64
	if err := runtime.BindQueryParameter("form", true, false, name, c.Request.URL.Query(), &id); err != nil {
		respondBadRequest(c, err)
		return nil, false
	}
	if id != nil && *id <= 0 {
		respondBadRequest(c, fmt.Errorf("%s must be greater than zero", name))
		return nil, false
	}
	return id, true
}
