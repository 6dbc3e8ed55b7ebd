package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/damoang/angple-editorial/internal/ai"
	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/damoang/angple-editorial/internal/persona"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/rs/zerolog"
)

// OfflinePlaceholder replaces the reply of a group turn whose backend failed
const OfflinePlaceholder = "(offline: this desk did not answer)"

// Reply is the result of a single dispatch. Text is never empty.
type Reply struct {
	Persona     string `json:"persona"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Degraded    bool   `json:"degraded"`
	Overridden  bool   `json:"overridden"`
}

// Turn is one persona's contribution to a group session
type Turn struct {
	Persona     string `json:"persona"`
	DisplayName string `json:"display_name"`
	Reply       string `json:"reply"`
	Offline     bool   `json:"offline"`
}

// GroupStep is one ordered step of a group session.
// BuildContext gets the raw command and every earlier turn.
type GroupStep struct {
	PersonaKey   string
	BuildContext func(command string, prior []Turn) string
}

// PingResult reports a backend class capability check
type PingResult struct {
	Class     string   `json:"class"`
	Online    bool     `json:"online"`
	Error     string   `json:"error,omitempty"`
	Models    []string `json:"models"`
	LatencyMS int64    `json:"latency_ms"`
}

// OverrideRule reroutes a command when it contains a domain term AND an action term
type OverrideRule struct {
	PersonaKey string
	domain     *regexp.Regexp
	action     *regexp.Regexp
}

// NewOverrideRule compiles word lists into an OverrideRule
func NewOverrideRule(personaKey string, domainTerms, actionTerms []string) OverrideRule {
	return OverrideRule{
		PersonaKey: personaKey,
		domain:     wordsPattern(domainTerms),
		action:     wordsPattern(actionTerms),
	}
}

// Matches reports whether both term groups appear in text
func (r OverrideRule) Matches(text string) bool {
	return r.domain.MatchString(text) && r.action.MatchString(text)
}

func wordsPattern(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// DefaultOverrideRules 우선 라우팅 규칙 (순서대로 평가)
func DefaultOverrideRules() []OverrideRule {
	return []OverrideRule{
		NewOverrideRule(persona.KeyLegal,
			[]string{"legal", "hukum", "fitnah", "defamation"},
			[]string{"check", "review", "cek", "periksa"}),
		NewOverrideRule(persona.KeyVisual,
			[]string{"image", "gambar", "foto", "photo"},
			[]string{"repair", "fix", "perbaiki", "cari"}),
	}
}

// DefaultGroupSteps is the editor-then-legal session
func DefaultGroupSteps() []GroupStep {
	return []GroupStep{
		{
			PersonaKey:   persona.KeyEditor,
			BuildContext: func(command string, _ []Turn) string { return command },
		},
		{
			PersonaKey: persona.KeyLegal,
			BuildContext: func(command string, prior []Turn) string {
				var b strings.Builder
				fmt.Fprintf(&b, "Operator command:\n%s", command)
				for _, t := range prior {
					fmt.Fprintf(&b, "\n\n%s replied:\n%s", t.DisplayName, t.Reply)
				}
				b.WriteString("\n\nReview the above for legal risk.")
				return b.String()
			},
		},
	}
}

// AgentRouterOptions configures the router
type AgentRouterOptions struct {
	Rules       []OverrideRule
	GroupSteps  []GroupStep
	CallTimeout time.Duration
}

// AgentRouter sends operator commands to persona backends
type AgentRouter struct {
	registry    *persona.Registry
	backends    map[string]ai.Backend
	activity    *ActivityLogger
	rules       []OverrideRule
	steps       []GroupStep
	callTimeout time.Duration
	log         zerolog.Logger
}

// NewAgentRouter creates a new AgentRouter
func NewAgentRouter(registry *persona.Registry, backends map[string]ai.Backend, activity *ActivityLogger, opts AgentRouterOptions) *AgentRouter {
	if opts.Rules == nil {
		opts.Rules = DefaultOverrideRules()
	}
	if len(opts.GroupSteps) == 0 {
		opts.GroupSteps = DefaultGroupSteps()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}
	return &AgentRouter{
		registry:    registry,
		backends:    backends,
		activity:    activity,
		rules:       opts.Rules,
		steps:       opts.GroupSteps,
		callTimeout: opts.CallTimeout,
		log:         pkglogger.WithComponent("agent_router"),
	}
}

// Route resolves which persona handles a command; override rules win over the requested key
func (r *AgentRouter) Route(requestedKey, command string) (persona.Persona, bool) {
	for _, rule := range r.rules {
		if rule.Matches(command) {
			return r.registry.Get(rule.PersonaKey), true
		}
	}
	return r.registry.Get(requestedKey), false
}

// Dispatch sends a command to one persona. Backend failures become the persona's degraded reply.
func (r *AgentRouter) Dispatch(ctx context.Context, personaKey, command string) Reply {
	p, overridden := r.Route(personaKey, command)

	text, err := r.call(ctx, p, command)
	reply := Reply{
		Persona:     p.Key,
		DisplayName: p.DisplayName,
		Text:        text,
		Overridden:  overridden,
	}
	if err != nil {
		reply.Text = p.DegradedReply
		reply.Degraded = true
		r.log.Warn().Err(err).Str("persona", p.Key).Msg("persona backend failed, degraded reply sent")
	}

	r.activity.Record(ctx, newActivity(domain.ActionAgentDispatch, nil, domain.Metadata{
		"requested":  personaKey,
		"persona":    p.Key,
		"backend":    p.BackendClass,
		"overridden": overridden,
		"degraded":   reply.Degraded,
		"command":    truncateRunes(command, 200),
	}, err))
	return reply
}

// DispatchGroup runs every group step in order. A failed step gets the offline
// placeholder and the session continues.
func (r *AgentRouter) DispatchGroup(ctx context.Context, command string) []Turn {
	turns := make([]Turn, 0, len(r.steps))
	var failures []string

	for _, step := range r.steps {
		p := r.registry.Get(step.PersonaKey)
		input := step.BuildContext(command, turns)

		text, err := r.call(ctx, p, input)
		turn := Turn{Persona: p.Key, DisplayName: p.DisplayName, Reply: text}
		if err != nil {
			turn.Reply = OfflinePlaceholder
			turn.Offline = true
			failures = append(failures, fmt.Sprintf("%s: %v", p.Key, err))
			r.log.Warn().Err(err).Str("persona", p.Key).Msg("group turn offline")
		}
		turns = append(turns, turn)
	}

	personas := make([]string, len(turns))
	offline := 0
	for i, t := range turns {
		personas[i] = t.Persona
		if t.Offline {
			offline++
		}
	}
	var groupErr error
	if len(failures) > 0 {
		groupErr = errors.New(strings.Join(failures, "; "))
	}
	r.activity.Record(ctx, newActivity(domain.ActionAgentGroup, nil, domain.Metadata{
		"personas": personas,
		"offline":  offline,
		"command":  truncateRunes(command, 200),
	}, groupErr))

	return turns
}

// Ping lists the models a backend class exposes. Only a diagnostic activity entry is written.
func (r *AgentRouter) Ping(ctx context.Context, class string) PingResult {
	result := PingResult{Class: class, Models: []string{}}

	backend, ok := r.backends[class]
	if !ok || backend == nil {
		result.Error = fmt.Sprintf("%v: %s", common.ErrUnknownBackendClass, class)
		r.activity.Record(ctx, newActivity(domain.ActionAgentPing, nil, domain.Metadata{"class": class}, errors.New(result.Error)))
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	start := time.Now()
	models, err := backend.ListModels(callCtx)
	result.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Online = true
		if models != nil {
			result.Models = models
		}
	}

	r.activity.Record(ctx, newActivity(domain.ActionAgentPing, nil, domain.Metadata{
		"class":      class,
		"online":     result.Online,
		"models":     len(result.Models),
		"latency_ms": result.LatencyMS,
	}, err))
	return result
}

// Personas exposes the registry contents
func (r *AgentRouter) Personas() []persona.Persona {
	return r.registry.All()
}

// call runs one persona turn. A started call is not cancelled by the caller; only the call timeout ends it.
func (r *AgentRouter) call(ctx context.Context, p persona.Persona, input string) (string, error) {
	backend, ok := r.backends[p.BackendClass]
	if !ok || backend == nil {
		personaDispatchTotal.WithLabelValues(p.Key, "unconfigured").Inc()
		return "", fmt.Errorf("%w: %s", common.ErrUnknownBackendClass, p.BackendClass)
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.callTimeout)
	defer cancel()

	text, err := backend.Complete(callCtx, p.SystemInstruction, input)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ai.ErrEmptyCompletion
	}
	if err != nil {
		personaDispatchTotal.WithLabelValues(p.Key, "error").Inc()
		return "", err
	}
	personaDispatchTotal.WithLabelValues(p.Key, "ok").Inc()
	return strings.TrimSpace(text), nil
}
