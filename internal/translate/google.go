package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	translatev2 "google.golang.org/api/translate/v2"
	translatev3 "google.golang.org/api/translate/v3"

	"docqa/internal/ratelimit"
)

type credentialKind int

const (
	credentialDefault credentialKind = iota // application default credentials
	credentialFile
	credentialJSON
	credentialAPIKey
)

// resolveCredential classifies the GOOGLE_TRANSLATE_API_KEY value.
func resolveCredential(value string) credentialKind {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return credentialDefault
	case strings.HasPrefix(value, "{"):
		return credentialJSON
	}
	if _, err := os.Stat(value); err == nil {
		return credentialFile
	}
	return credentialAPIKey
}

// Google calls Cloud Translation. A raw API key selects the v2 REST API,
// everything else uses v3 under the project's global location.
type Google struct {
	v3      *translatev3.Service
	v2      *translatev2.Service
	parent  string
	limiter *ratelimit.Limiter
}

func NewGoogle(ctx context.Context, projectID, credential string, limiter *ratelimit.Limiter) (*Google, error) {
	g := &Google{limiter: limiter}

	kind := resolveCredential(credential)
	if kind == credentialAPIKey {
		svc, err := translatev2.NewService(ctx, option.WithAPIKey(strings.TrimSpace(credential)))
		if err != nil {
			return nil, fmt.Errorf("failed to create translate v2 client: %w", err)
		}
		g.v2 = svc
		return g, nil
	}

	if projectID == "" {
		return nil, errors.New("google translate v3 requires a project ID")
	}
	var opts []option.ClientOption
	switch kind {
	case credentialFile:
		opts = append(opts, option.WithCredentialsFile(credential))
	case credentialJSON:
		opts = append(opts, option.WithCredentialsJSON([]byte(credential)))
	}
	svc, err := translatev3.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translate v3 client: %w", err)
	}
	g.v3 = svc
	g.parent = fmt.Sprintf("projects/%s/locations/global", projectID)
	return g, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var (
		out string
		err error
	)
	if g.v3 != nil {
		out, err = g.translateV3(ctx, text, source, target)
	} else {
		out, err = g.translateV2(ctx, text, source, target)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		g.limiter.Backoff(5 * time.Second)
	}
	return out, err
}

func (g *Google) translateV3(ctx context.Context, text, source, target string) (string, error) {
	resp, err := g.v3.Projects.Locations.TranslateText(g.parent, &translatev3.TranslateTextRequest{
		Contents:           []string{text},
		SourceLanguageCode: source,
		TargetLanguageCode: target,
		MimeType:           "text/plain",
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(resp.Translations) == 0 {
		return "", errors.New("google returned no translations")
	}
	return resp.Translations[0].TranslatedText, nil
}

func (g *Google) translateV2(ctx context.Context, text, source, target string) (string, error) {
	resp, err := g.v2.Translations.List([]string{text}, target).
		Source(source).
		Format("text").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(resp.Translations) == 0 {
		return "", errors.New("google returned no translations")
	}
	return resp.Translations[0].TranslatedText, nil
}
