package util

import "github.com/gin-gonic/gin"

// Normalizer is implemented by request bodies that clean their own fields.
// BindJSON calls it before the body reaches the validator, so length rules
// see the same value the domain will store.
type Normalizer interface {
	Normalize()
}

func BindJSON[T any](c *gin.Context) (T, error) {
	var params T

	if err := c.ShouldBindJSON(&params); err != nil {
		return params, err
	}

	if n, ok := any(&params).(Normalizer); ok {
		n.Normalize()
	}

	return params, nil
}

func BindQuery[T any](c *gin.Context) (T, error) {
	var params T

	if err := c.ShouldBindQuery(&params); err != nil {
		return params, err
	}

	return params, nil
}
