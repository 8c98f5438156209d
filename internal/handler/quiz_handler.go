package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/slangdex/internal/dto"
)

type QuizHandler struct {
	quizzes QuizCatalog
}

func NewQuizHandler(quizzes QuizCatalog) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

func (h *QuizHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, dto.QuizzesResponse{Quizzes: h.quizzes.List(c.Query("category"))})
}

func (h *QuizHandler) Featured(c *gin.Context) {
	c.JSON(http.StatusOK, dto.QuizzesResponse{Quizzes: h.quizzes.Featured()})
}

func (h *QuizHandler) Get(c *gin.Context) {
	quiz, err := h.quizzes.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}
