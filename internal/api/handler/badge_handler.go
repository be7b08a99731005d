package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/beacon-feed/pkg/response"
)

// BadgeCatalog 查询徽章目录
// @Summary 查询徽章目录
// @Tags 徽章
// @Success 200 {object} response.Response
// @Router /api/v1/badges [get]
func (h *Handler) BadgeCatalog(c *gin.Context) {
	catalog, err := h.badges.Catalog(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": catalog})
}

// ListUserBadges 查询用户已获徽章
// @Summary 查询用户徽章
// @Tags 徽章
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response
// @Router /api/v1/users/{user_id}/badges [get]
func (h *Handler) ListUserBadges(c *gin.Context) {
	list, err := h.badges.ListForUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}
