package domain

import "time"

// Source is one retrieved chunk used to ground an answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float32 `json:"similarity"`
	Page       int     `json:"page,omitempty"`
	Section    string  `json:"section,omitempty"`
	Preview    string  `json:"preview"`
}

// Turn is one question and its answer in a chat history.
type Turn struct {
	Question         string    `json:"question"`
	QuestionLanguage string    `json:"question_language"`
	Answer           string    `json:"answer"`
	AnswerLanguage   string    `json:"answer_language"`
	Sources          []Source  `json:"sources"`
	NoContext        bool      `json:"no_context,omitempty"`
	Warnings         []string  `json:"warnings,omitempty"`
	ModelUsed        string    `json:"model_used,omitempty"`
	TokensUsed       int       `json:"tokens_used,omitempty"`
	AskedAt          time.Time `json:"asked_at"`
}
