package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/beacon-feed/internal/service"
	"github.com/d60-Lab/beacon-feed/pkg/response"
)

type friendRequest struct {
	FromUserID string `json:"from_user_id" binding:"required"`
	ToUserID   string `json:"to_user_id" binding:"required"`
}

// RequestFriend 发起好友申请
// @Summary 发起好友申请
// @Tags 关系
// @Accept json
// @Produce json
// @Param request body friendRequest true "申请信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/request [post]
func (h *Handler) RequestFriend(c *gin.Context) {
	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.relations.Request(c.Request.Context(), req.FromUserID, req.ToUserID)
	switch {
	case errors.Is(err, service.ErrSelfRelation), errors.Is(err, service.ErrUserNotFound):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Success(c, nil)
	}
}

// AcceptFriend 接受好友申请（仅接收方可接受）
// @Summary 接受好友申请
// @Tags 关系
// @Accept json
// @Produce json
// @Param request body friendRequest true "from 为接受者，to 为原申请者"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/accept [post]
func (h *Handler) AcceptFriend(c *gin.Context) {
	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.relations.Accept(c.Request.Context(), req.FromUserID, req.ToUserID)
	switch {
	case errors.Is(err, service.ErrSelfRelation), errors.Is(err, service.ErrNoPendingOffer):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Success(c, nil)
	}
}

// RelationStatus 查询两用户的关系状态
// @Summary 查询关系状态
// @Tags 关系
// @Param me query string true "查看者ID"
// @Param other query string true "对方ID"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/status [get]
func (h *Handler) RelationStatus(c *gin.Context) {
	me, other := c.Query("me"), c.Query("other")
	if me == "" || other == "" {
		response.BadRequest(c, "me and other are required")
		return
	}
	status, err := h.graph.RelationStatus(c.Request.Context(), me, other)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"status": status})
}

// ListFriends 查询好友列表及聚合计数
// @Summary 查询好友列表
// @Tags 关系
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/{user_id}/friends [get]
func (h *Handler) ListFriends(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("user_id")
	ids, err := h.graph.ActiveFriends(ctx, userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	friendCounts, err := h.graph.BatchFriendCounts(ctx, ids)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	postCounts, err := h.graph.BatchPostCounts(ctx, ids)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	type entry struct {
		UserID  string `json:"user_id"`
		Friends int64  `json:"friend_count"`
		Posts   int64  `json:"post_count"`
	}
	list := make([]entry, 0, len(ids))
	for _, id := range ids {
		list = append(list, entry{UserID: id, Friends: friendCounts[id], Posts: postCounts[id]})
	}
	response.Success(c, gin.H{"list": list})
}

// Intimacy 查询两用户的亲密度
// @Summary 查询亲密度分数与等级
// @Tags 关系
// @Param a query string true "用户A"
// @Param b query string true "用户B"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/intimacy [get]
func (h *Handler) Intimacy(c *gin.Context) {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		response.BadRequest(c, "a and b are required")
		return
	}
	ctx := c.Request.Context()
	score, err := h.intimacy.Score(ctx, a, b)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	level, err := h.intimacy.Level(ctx, a, b)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"score": score, "level": level})
}
