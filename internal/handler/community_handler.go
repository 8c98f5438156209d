package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/dto"
)

const defaultTopicLimit = 5

// CommunityHandler serves the community feed
type CommunityHandler struct {
	feed    Feed
	session Session
}

func NewCommunityHandler(feed Feed, session Session) *CommunityHandler {
	return &CommunityHandler{feed: feed, session: session}
}

// ListPosts returns the feed. Likes are marked for the signed-in user.
func (h *CommunityHandler) ListPosts(c *gin.Context) {
	var viewerID string
	if id := h.session.Current().Identity; id != nil {
		viewerID = id.ID
	}
	c.JSON(http.StatusOK, dto.PostsResponse{Posts: h.feed.ListPosts(viewerID)})
}

func (h *CommunityHandler) CreatePost(c *gin.Context) {
	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, err.Error())
		return
	}

	user := h.session.Current().User
	if user == nil {
		writeError(c, domain.ErrNotSignedIn)
		return
	}

	post, err := h.feed.CreatePost(c.Request.Context(), domain.Author{
		ID:        user.ID,
		Username:  user.Username,
		AvatarURL: user.PhotoURL,
	}, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *CommunityHandler) ToggleLike(c *gin.Context) {
	post, err := h.feed.ToggleLike(c.Param("id"), c.GetString(contextUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *CommunityHandler) Topics(c *gin.Context) {
	limit := defaultTopicLimit
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		limit = n
	}
	c.JSON(http.StatusOK, dto.TopicsResponse{Topics: h.feed.TrendingTopics(limit)})
}
