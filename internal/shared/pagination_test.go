package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 35)
	assert.Equal(t, 4, p.TotalPages)
	assert.Equal(t, 10, p.Offset())
	assert.True(t, p.HasNext())
	assert.True(t, p.HasPrev())

	empty := NewPagination(0, 0, 0)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 20, empty.PerPage)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext())
}

func TestPageFromQueryClamps(t *testing.T) {
	page, per := PageFromQuery(url.Values{"page": {"-3"}, "per_page": {"5000"}})
	assert.Equal(t, 1, page)
	assert.Equal(t, MaxPerPage, per)
}
