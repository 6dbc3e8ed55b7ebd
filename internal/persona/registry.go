// Package persona holds the fixed set of AI desk personas that operator commands are routed to.
package persona

import (
	"sort"
	"strings"
)

// Persona keys
const (
	KeyEditor       = "editor"
	KeyLegal        = "legal"
	KeyInvestigator = "investigator"
	KeyVisual       = "visual"
)

// DefaultKey is used for unknown or empty keys
const DefaultKey = KeyEditor

// Persona is an immutable behavioral profile. Values are returned by copy.
type Persona struct {
	Key               string `json:"key"`
	DisplayName       string `json:"display_name"`
	Role              string `json:"role"`
	Tone              string `json:"tone"`
	SystemInstruction string `json:"-"`
	// BackendClass 는 ai.ClassProxy 또는 ai.ClassGemini
	BackendClass  string `json:"backend_class"`
	DegradedReply string `json:"-"`
}

// Registry is a read-only lookup table of personas
type Registry struct {
	personas map[string]Persona
}

// NewRegistry builds the registry with the built-in desk
func NewRegistry(proxyClass, geminiClass string) *Registry {
	list := []Persona{
		{
			Key:         KeyEditor,
			DisplayName: "Managing Editor",
			Role:        "editor",
			Tone:        "decisive, concise, newsroom shorthand",
			SystemInstruction: `You are the managing editor of an investigative news desk.
Answer operator commands briefly. Prioritise accuracy, sourcing and fairness.
When asked to draft, return a headline, a one-paragraph excerpt and an outline.`,
			BackendClass:  proxyClass,
			DegradedReply: "Editor desk is offline right now. Your request is noted; try again in a few minutes.",
		},
		{
			Key:         KeyLegal,
			DisplayName: "Legal Reviewer",
			Role:        "reviewer",
			Tone:        "cautious, precise, cites risk categories",
			SystemInstruction: `You are the legal reviewer of a news desk.
Read the material and point out defamation, privacy and criminal-allegation risks.
Say clearly what must be verified or softened before publication.`,
			BackendClass:  proxyClass,
			DegradedReply: "Legal review is unavailable. Treat the material as unreviewed and do not publish.",
		},
		{
			Key:         KeyInvestigator,
			DisplayName: "Investigations Lead",
			Role:        "researcher",
			Tone:        "curious, methodical, lists open questions",
			SystemInstruction: `You are the investigations lead. Break the request into leads,
documents to obtain and people to contact. Separate facts from assumptions.`,
			BackendClass:  geminiClass,
			DegradedReply: "Investigations desk is offline. Keep collecting documents and retry later.",
		},
		{
			Key:         KeyVisual,
			DisplayName: "Photo Desk",
			Role:        "visual",
			Tone:        "practical, short",
			SystemInstruction: `You are the photo desk. Suggest featured image concepts and alt text
for news articles. Never suggest images of identifiable private persons.`,
			BackendClass:  geminiClass,
			DegradedReply: "Photo desk is offline. Use the image repair endpoint to refresh images.",
		},
	}

	r := &Registry{personas: make(map[string]Persona, len(list))}
	for _, p := range list {
		r.personas[p.Key] = p
	}
	return r
}

// Get returns the persona for key, or the default persona when key is unknown
func (r *Registry) Get(key string) Persona {
	if p, ok := r.Lookup(key); ok {
		return p
	}
	return r.Default()
}

// Lookup returns the persona and whether key was known
func (r *Registry) Lookup(key string) (Persona, bool) {
	p, ok := r.personas[strings.ToLower(strings.TrimSpace(key))]
	return p, ok
}

// Default returns the default persona
func (r *Registry) Default() Persona {
	return r.personas[DefaultKey]
}

// All returns every persona sorted by key
func (r *Registry) All() []Persona {
	out := make([]Persona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
