package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name                  string
		page, pageSize, count int
		total                 int64
		want                  Pagination
	}{
		{
			name: "first of three pages", page: 1, pageSize: 10, count: 10, total: 25,
			want: Pagination{Page: 1, PageSize: 10, TotalPages: 3, TotalItems: 25, HasMore: true, From: 1, To: 10},
		},
		{
			name: "last partial page", page: 3, pageSize: 10, count: 5, total: 25,
			want: Pagination{Page: 3, PageSize: 10, TotalPages: 3, TotalItems: 25, From: 21, To: 25},
		},
		{
			name: "empty", page: 1, pageSize: 20, count: 0, total: 0,
			want: Pagination{Page: 1, PageSize: 20},
		},
		{
			name: "page below one", page: 0, pageSize: 5, count: 5, total: 6,
			want: Pagination{Page: 1, PageSize: 5, TotalPages: 2, TotalItems: 6, HasMore: true, From: 1, To: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, *NewPagination(tt.page, tt.pageSize, tt.count, tt.total))
		})
	}
}
