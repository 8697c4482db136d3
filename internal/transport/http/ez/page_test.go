package ez

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageNorm(t *testing.T) {
	p := Page{}.Norm(10)
	assert.Equal(t, Page{Page: 1, Limit: 10}, p)
	assert.Equal(t, 0, p.Offset())

	p = Page{Page: 3, Limit: 500}.Norm(10)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 200, p.Offset())
}

func TestPageNormCapsHugePage(t *testing.T) {
	p := Page{Page: math.MaxInt, Limit: MaxLimit}.Norm(10)
	assert.Equal(t, MaxPage, p.Page)
	assert.Positive(t, p.Offset())
	assert.LessOrEqual(t, p.Offset(), math.MaxInt32)

	// 未经 Norm 的入参也不会算出负 offset
	assert.GreaterOrEqual(t, Page{Page: math.MaxInt, Limit: math.MaxInt}.Offset(), 0)
	assert.Equal(t, 0, Page{Page: -5, Limit: 10}.Offset())
}

func TestPageOf(t *testing.T) {
	pg := Page{Page: 2, Limit: 10}.Of(21)
	assert.Equal(t, Pagination{Page: 2, Limit: 10, Total: 21, Pages: 3}, pg)
	assert.Equal(t, 0, Page{Page: 1, Limit: 10}.Of(0).Pages)
}
