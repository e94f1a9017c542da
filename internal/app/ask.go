package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/rag"
)

const noContextMessage = "I couldn't find relevant information in the uploaded document to answer your question."

// Ask answers a question about the session's document and records the turn.
// When nothing relevant is found the returned turn has NoContext set and
// carries a localized explanation instead of an answer.
func (a *App) Ask(ctx context.Context, sessionID, question string) (*domain.Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	s, err := a.session(sessionID)
	if err != nil {
		return nil, err
	}

	doc, lang, err := s.BeginAnswer()
	if err != nil {
		return nil, err
	}
	var turn *domain.Turn
	defer func() { s.EndAnswer(doc, turn) }()

	log.Printf("❓ [%s] %s", sessionID, question)
	ans, err := a.rag.Answer(ctx, rag.Question{Text: question, Document: doc, ResponseLanguage: lang})
	switch {
	case errors.Is(err, rag.ErrNoContext):
		turn = a.noContextTurn(ctx, question, ans, lang)
		return turn, nil
	case err != nil:
		log.Printf("❌ Answer failed: %v", err)
		return nil, err
	}

	turn = &domain.Turn{
		Question:         question,
		QuestionLanguage: ans.QuestionLanguage,
		Answer:           ans.Text,
		AnswerLanguage:   ans.Language,
		Sources:          ans.Sources,
		Warnings:         ans.Warnings,
		ModelUsed:        ans.Model,
		TokensUsed:       ans.TokensUsed,
		AskedAt:          time.Now(),
	}
	return turn, nil
}

func (a *App) noContextTurn(ctx context.Context, question string, ans *rag.Answer, lang string) *domain.Turn {
	turn := &domain.Turn{
		Question:       question,
		Answer:         noContextMessage,
		AnswerLanguage: "en",
		NoContext:      true,
		AskedAt:        time.Now(),
	}
	if ans != nil {
		turn.QuestionLanguage = ans.QuestionLanguage
		turn.Warnings = ans.Warnings
	}
	if lang != "" && lang != "en" {
		if msg, err := a.translator.Translate(ctx, noContextMessage, "en", lang); err == nil {
			turn.Answer = msg
			turn.AnswerLanguage = lang
		}
	}
	return turn
}

// History returns the session's chat turns, oldest first.
func (a *App) History(sessionID string) ([]domain.Turn, error) {
	s, err := a.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.History(), nil
}
