package service

import (
	"github.com/warebill/warebill/internal/types"
)

// newFullListPagination describes an unpaginated listing that returned
// everything it matched
func newFullListPagination(total int) types.PaginationResponse {
	return types.NewPaginationResponse(total, total, 0)
}
