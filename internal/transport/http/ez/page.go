package ez

import (
	"math"

	"github.com/gin-gonic/gin"
)

// Page 列表分页入参，嵌入到查询结构体
type Page struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

const MaxLimit = 100

// MaxPage 保证 Page*MaxLimit 不超过 int32，offset 在各数据库下都不会溢出
const MaxPage = math.MaxInt32 / MaxLimit

// Norm page 取 [1, MaxPage]，limit 为 0 时取 def，上限 MaxLimit
func (p Page) Norm(def int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int {
	page, limit := min(max(p.Page, 1), MaxPage), min(max(p.Limit, 0), MaxLimit)
	return (page - 1) * limit
}

func (p Page) Of(total int64) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

// Paged {<key>: items, pagination: {...}}
func Paged(key string, items any, pg Pagination) gin.H {
	return gin.H{key: items, "pagination": pg}
}
