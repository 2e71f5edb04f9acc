package query

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Pagination is keyset pagination over ascending ids. A nil Limit means no
// limit.
type Pagination struct {
	Limit *int
	After *uint
	Order string
}

func (p *Pagination) Descending() bool {
	return p != nil && p.Order == OrderDesc
}

func GetPaginationFromQuery(reqCtx *gin.Context) (*Pagination, error) {
	limitStr := reqCtx.DefaultQuery("limit", "20")
	order := reqCtx.DefaultQuery("order", OrderAsc)

	var limit *int
	if limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil || limitInt < 1 {
			return nil, fmt.Errorf("invalid limit number")
		}
		limit = &limitInt
	}

	if order != OrderAsc && order != OrderDesc {
		return nil, fmt.Errorf("invalid order")
	}

	var after *uint
	if afterStr := reqCtx.Query("after"); afterStr != "" {
		afterInt, err := strconv.ParseUint(afterStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid after id")
		}
		a := uint(afterInt)
		after = &a
	}

	return &Pagination{
		Limit: limit,
		After: after,
		Order: order,
	}, nil
}
