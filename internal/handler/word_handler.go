package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/slangdex/internal/dto"
	"go.uber.org/zap"
)

const maxTrendingLimit = 50

// WordHandler serves dictionary lookups
type WordHandler struct {
	words        WordFinder
	session      Session
	defaultLimit int
	logger       *zap.Logger
}

func NewWordHandler(words WordFinder, session Session, defaultLimit int, logger *zap.Logger) *WordHandler {
	return &WordHandler{
		words:        words,
		session:      session,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Search answers ?q=. A blank query returns trending words.
func (h *WordHandler) Search(c *gin.Context) {
	words := h.words.Search(c.Request.Context(), c.Query("q"))
	c.JSON(http.StatusOK, dto.NewWordsResponse(words))
}

func (h *WordHandler) Trending(c *gin.Context) {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTrendingLimit {
			abortWith(c, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, dto.NewWordsResponse(h.words.Trending(limit)))
}

// Get returns one word and records it as recently viewed when someone is
// signed in
func (h *WordHandler) Get(c *gin.Context) {
	id := c.Param("id")

	word, err := h.words.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	if h.session.Current().SignedIn() {
		if !h.session.RecordView(c.Request.Context(), word.ID) {
			h.logger.Debug("recent view not recorded", zap.String("word_id", word.ID))
		}
	}

	c.JSON(http.StatusOK, word)
}
