package domain

type Quiz struct {
	ID             string  `json:"id" yaml:"id"`
	Title          string  `json:"title" yaml:"title"`
	Description    string  `json:"description" yaml:"description"`
	QuestionCount  int     `json:"questionCount" yaml:"questionCount"`
	Difficulty     string  `json:"difficulty" yaml:"difficulty"`
	ImageURL       string  `json:"imageUrl" yaml:"imageUrl"`
	Category       string  `json:"category" yaml:"category"`
	CompletionRate float64 `json:"completionRate" yaml:"completionRate"`
	IsNew          bool    `json:"isNew" yaml:"isNew"`
	IsFeatured     bool    `json:"isFeatured" yaml:"isFeatured"`
}
