package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/internal/dto"
	"github.com/prperemyshlev/slangdex/pkg/blobstore"
	"go.uber.org/zap"
)

// ProfileHandler serves the signed-in user's profile and word lists
type ProfileHandler struct {
	session       Session
	lists         WordLists
	words         WordFinder
	maxUploadSize int64
	logger        *zap.Logger
}

func NewProfileHandler(session Session, lists WordLists, words WordFinder, maxUploadSize int64, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		session:       session,
		lists:         lists,
		words:         words,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// GetMe returns the current profile. While the profile store is unreachable
// this is the locally synthesized profile.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	snap := h.session.Current()
	if snap.User == nil {
		c.Header("Retry-After", "1")
		abortWith(c, http.StatusServiceUnavailable, fmt.Sprintf("Profile is not available yet (%s)", snap.State))
		return
	}
	c.JSON(http.StatusOK, snap.User)
}

// UpdateMe applies a partial profile update
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, err.Error())
		return
	}

	fields := domain.ProfileFields{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Username:    req.Username,
	}
	if err := h.session.UpdateProfile(c.Request.Context(), fields); err != nil {
		writeError(c, err)
		return
	}

	h.GetMe(c)
}

func (h *ProfileHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, err.Error())
		return
	}

	patch := domain.SettingsPatch{
		NotificationsEnabled: req.NotificationsEnabled,
		DarkModeEnabled:      req.DarkModeEnabled,
		EmailNotifications:   req.EmailNotifications,
		Language:             req.Language,
	}
	if req.QuizDifficulty != nil {
		d := domain.QuizDifficulty(*req.QuizDifficulty)
		patch.QuizDifficulty = &d
	}

	if err := h.session.UpdateSettings(c.Request.Context(), patch); err != nil {
		writeError(c, err)
		return
	}

	h.GetMe(c)
}

// UploadPhoto stores the multipart "photo" file as the new profile photo
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+1<<20)

	header, err := c.FormFile("photo")
	if err != nil {
		abortWith(c, http.StatusBadRequest, "A photo file is required")
		return
	}
	if header.Size > h.maxUploadSize {
		abortWith(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Photos must be smaller than %d bytes", h.maxUploadSize))
		return
	}

	file, err := header.Open()
	if err != nil {
		writeError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	userID := c.GetString(contextUserID)
	url, err := h.session.UpdatePhoto(c.Request.Context(), file, header.Size, func(p blobstore.Progress) {
		h.logger.Debug("photo upload progress",
			zap.String("user_id", userID),
			zap.Int64("bytes", p.BytesTransferred),
			zap.Int64("total", p.TotalBytes),
		)
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PhotoResponse{PhotoURL: url})
}

// Favorites returns the stored favorite ids and the words they resolve to
func (h *ProfileHandler) Favorites(c *gin.Context) {
	ids := h.lists.FavoriteWordIDs(c.Request.Context(), c.GetString(contextUserID))
	c.JSON(http.StatusOK, h.resolve(c, ids))
}

// Recents returns the recently viewed words, most recent first
func (h *ProfileHandler) Recents(c *gin.Context) {
	ids := h.lists.RecentWordIDs(c.Request.Context(), c.GetString(contextUserID))
	c.JSON(http.StatusOK, h.resolve(c, ids))
}

func (h *ProfileHandler) AddFavorite(c *gin.Context) {
	wordID := c.Param("wordId")
	if !h.session.AddFavorite(c.Request.Context(), wordID) {
		abortWith(c, http.StatusServiceUnavailable, "Could not save your favorite. Please try again.")
		return
	}
	c.JSON(http.StatusOK, dto.FavoriteResponse{WordID: wordID, IsFavorite: h.session.IsFavorite(wordID)})
}

func (h *ProfileHandler) RemoveFavorite(c *gin.Context) {
	wordID := c.Param("wordId")
	if !h.session.RemoveFavorite(c.Request.Context(), wordID) {
		abortWith(c, http.StatusServiceUnavailable, "Could not remove your favorite. Please try again.")
		return
	}
	c.JSON(http.StatusOK, dto.FavoriteResponse{WordID: wordID, IsFavorite: h.session.IsFavorite(wordID)})
}

func (h *ProfileHandler) resolve(c *gin.Context, ids []string) dto.WordListResponse {
	words := make([]*domain.Word, 0, len(ids))
	for _, id := range ids {
		word, err := h.words.GetByID(c.Request.Context(), id)
		if err != nil {
			h.logger.Debug("skipping unresolved word", zap.String("word_id", id), zap.Error(err))
			continue
		}
		words = append(words, word)
	}
	return dto.WordListResponse{WordIDs: ids, Words: words}
}
