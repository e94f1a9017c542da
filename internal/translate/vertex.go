package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"docqa/internal/ratelimit"
)

const translatorPrompt = `You are a professional translator.
Translate the user's text exactly as requested.
Return only the translated text, with no notes, quotes or explanations.
Preserve line breaks, numbering and formatting.`

// Vertex translates with a Gemini model on Vertex AI.
type Vertex struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	limiter *ratelimit.Limiter
}

func NewVertex(ctx context.Context, projectID, region, modelName string, limiter *ratelimit.Limiter) (*Vertex, error) {
	if projectID == "" {
		return nil, errors.New("vertex requires a project ID")
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(translatorPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &Vertex{client: client, model: model, limiter: limiter}, nil
}

func (v *Vertex) Name() string { return "vertex" }

func (v *Vertex) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := v.model.GenerateContent(ctx, genai.Text(translationPrompt(text, source, target)))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return responseText(resp)
}

func (v *Vertex) Close() error {
	return v.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("vertex returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("vertex returned empty text")
	}
	return out, nil
}

func translationPrompt(text, source, target string) string {
	return fmt.Sprintf("Translate the following text from language code %q to language code %q.\n\n%s", source, target, text)
}
