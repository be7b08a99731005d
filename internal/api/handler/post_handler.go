package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/beacon-feed/internal/geo"
	"github.com/d60-Lab/beacon-feed/internal/service"
	"github.com/d60-Lab/beacon-feed/pkg/response"
)

type createPostRequest struct {
	AuthorID      string   `json:"author_id" binding:"required"`
	Caption       string   `json:"caption"`
	Thumbnail     string   `json:"thumbnail"`
	Lat           float64  `json:"lat" binding:"required"`
	Lng           float64  `json:"lng" binding:"required"`
	Collaborators []string `json:"collaborators"`
}

// CreatePost 发帖（落库即定格 beacon，扇出异步执行）
// @Summary 创建位置打点帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body createPostRequest true "帖子信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.posts.Create(c.Request.Context(), service.CreatePostInput{
		AuthorID:      req.AuthorID,
		Caption:       req.Caption,
		Thumbnail:     req.Thumbnail,
		Lat:           req.Lat,
		Lng:           req.Lng,
		Collaborators: req.Collaborators,
	})
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinate), errors.Is(err, service.ErrAuthorInactive):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Success(c, post)
	}
}

// GetPost 查询单帖
// @Summary 查询帖子
// @Tags 帖子
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{post_id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("post_id"))
	if errors.Is(err, service.ErrPostNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, post)
}

// NearbyFriendPosts 查询附近（本格 + 六邻格）好友的帖子
// @Summary 查询附近好友帖子
// @Tags 帖子
// @Param user_id query string true "查看者ID"
// @Param lat query number true "纬度"
// @Param lng query number true "经度"
// @Param limit query int false "数量上限" default(50)
// @Success 200 {object} response.Response
// @Router /api/v1/posts/nearby [get]
func (h *Handler) NearbyFriendPosts(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil || c.Query("user_id") == "" {
		response.BadRequest(c, "user_id, lat and lng are required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	posts, err := h.posts.NearbyFriendPosts(c.Request.Context(), c.Query("user_id"), lat, lng, limit)
	if errors.Is(err, geo.ErrInvalidCoordinate) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": posts})
}

// ResolveBeacon 坐标解析为 beacon
// @Summary 解析坐标所属 beacon
// @Tags 地理
// @Param lat query number true "纬度"
// @Param lng query number true "经度"
// @Success 200 {object} response.Response
// @Router /api/v1/beacons/resolve [get]
func (h *Handler) ResolveBeacon(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		response.BadRequest(c, "lat and lng are required")
		return
	}
	id, err := geo.CellID(lat, lng)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	clat, clng, _ := geo.CellCenter(id)
	neighbors, _ := geo.Neighbors(id)
	response.Success(c, gin.H{
		"beacon_id":  id,
		"center_lat": clat,
		"center_lng": clng,
		"neighbors":  neighbors,
	})
}
