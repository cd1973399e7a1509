package util

import (
	"strconv"
)

// ParsePage 解析分页参数，非法值回落到默认值
func ParsePage(pageStr, limitStr string, defaultLimit int) (int, int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}
