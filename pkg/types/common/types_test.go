package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequestValidate(t *testing.T) {
	valid := PageRequest{Page: 1, PageSize: 20, SortOrder: "asc"}
	require.NoError(t, valid.Validate())

	cases := []PageRequest{
		{Page: 0, PageSize: 20},
		{Page: 1, PageSize: 0},
		{Page: 1, PageSize: 1001},
		{Page: 1, PageSize: 20, SortOrder: "sideways"},
	}
	for _, c := range cases {
		assert.Error(t, c.Validate())
	}
}

func TestPageRequestOffset(t *testing.T) {
	r := PageRequest{Page: 3, PageSize: 25}
	assert.Equal(t, 50, r.Offset())
}

func TestNewPageResponseComputesTotalPages(t *testing.T) {
	resp := NewPageResponse([]int{1, 2, 3}, 45, PageRequest{Page: 2, PageSize: 20})
	assert.Equal(t, int64(45), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 2, resp.Page)
}

func TestNewIDIsUnique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.Empty())
	var zero ID
	assert.True(t, zero.Empty())
}
