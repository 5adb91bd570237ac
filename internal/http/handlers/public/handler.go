package public

import "github.com/revenda-next/internal/provider"

// Handler 对外 API 处理器入口。
// 鉴权由外部协作方完成，本服务只接收已授权的推广人标识。
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
