package imagesource

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
)

// Provenance labels stored in articles.image_source
const (
	LabelAIGenerated = "AI Generated"
	LabelLoremFlickr = "LoremFlickr"
)

// ErrNoKeywords is returned by keyword providers that cannot build a query
var ErrNoKeywords = errors.New("no keywords to search for")

// Request is what a provider needs to build a candidate URL
type Request struct {
	Prompt   string
	Keywords []string
	Seed     int64
}

// Provider produces a candidate image URL. Candidates are validated by the caller.
type Provider interface {
	Name() string
	Label() string
	Candidate(ctx context.Context, req Request) (string, error)
}

// GenerativeProvider builds a prompt URL for a text-to-image service (Pollinations style).
// The image is rendered on first fetch, so the HEAD check is what actually triggers generation.
type GenerativeProvider struct {
	baseURL string
	width   int
	height  int
}

// NewGenerativeProvider creates a new GenerativeProvider
func NewGenerativeProvider(baseURL string, width, height int) *GenerativeProvider {
	return &GenerativeProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		width:   width,
		height:  height,
	}
}

func (p *GenerativeProvider) Name() string  { return "generative" }
func (p *GenerativeProvider) Label() string { return LabelAIGenerated }

// Candidate returns base/<escaped prompt>?width=..&height=..&seed=..&nologo=true
func (p *GenerativeProvider) Candidate(_ context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("empty prompt")
	}
	q := url.Values{}
	q.Set("width", fmt.Sprint(p.width))
	q.Set("height", fmt.Sprint(p.height))
	q.Set("seed", fmt.Sprint(req.Seed))
	q.Set("nologo", "true")
	return fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(req.Prompt), q.Encode()), nil
}

// KeywordProvider is the deterministic stock-photo fallback (LoremFlickr style)
type KeywordProvider struct {
	baseURL string
	label   string
	width   int
	height  int
}

// NewKeywordProvider creates a new KeywordProvider
func NewKeywordProvider(baseURL string, width, height int) *KeywordProvider {
	return &KeywordProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		label:   LabelLoremFlickr,
		width:   width,
		height:  height,
	}
}

func (p *KeywordProvider) Name() string  { return "keyword" }
func (p *KeywordProvider) Label() string { return p.label }

// Candidate returns base/<w>/<h>/<kw1,kw2>?lock=<hash>; the same keywords always give the same URL
func (p *KeywordProvider) Candidate(_ context.Context, req Request) (string, error) {
	if len(req.Keywords) == 0 {
		return "", ErrNoKeywords
	}
	escaped := make([]string, len(req.Keywords))
	for i, k := range req.Keywords {
		escaped[i] = url.PathEscape(k)
	}
	joined := strings.Join(escaped, ",")

	h := fnv.New32a()
	h.Write([]byte(joined))

	return fmt.Sprintf("%s/%d/%d/%s?lock=%d", p.baseURL, p.width, p.height, joined, h.Sum32()%10000), nil
}
