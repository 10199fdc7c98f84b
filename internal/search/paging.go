package search

// MaxPageSize 单页最大条数
const MaxPageSize = 100

// 文档注释：计算偏移与总页数
// 背景：offset=(page-1)*pageSize，totalPages 向上取整。
// 约束：page 超出末页时不做乘法，直接返回 offset=total（空页），避免超大页码溢出。
func Pagination(total, page, pageSize int) (offset, totalPages int) {
	totalPages = (total + pageSize - 1) / pageSize
	if page-1 >= totalPages {
		return total, totalPages
	}
	return (page - 1) * pageSize, totalPages
}

func validatePage(page, pageSize int) error {
	if page < 1 {
		return &ValidationError{Field: "page", Value: float64(page), Err: ErrInvalidPage}
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return &ValidationError{Field: "page_size", Value: float64(pageSize), Err: ErrInvalidPage}
	}
	return nil
}
