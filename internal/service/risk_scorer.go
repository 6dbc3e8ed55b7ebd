package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/damoang/angple-editorial/internal/ai"
	"github.com/damoang/angple-editorial/internal/domain"
	pkglogger "github.com/damoang/angple-editorial/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// FallbackRecommendation is the single recommendation attached to the conservative fallback
const FallbackRecommendation = "Manual legal review required — automated analysis unavailable"

const fallbackRiskScore = 50

var errMissingSubscores = errors.New("oracle response is missing subscores")

// 위험 점수 가중치 (oracle 이 risk_score 를 주지 않을 때)
var riskWeights = struct {
	defamation, privacy, falseInfo, criminal, corporate float64
}{0.30, 0.20, 0.20, 0.20, 0.10}

// RiskScorerOptions tunes the scorer thresholds
type RiskScorerOptions struct {
	LegalReviewThreshold int
	FlagThreshold        float64
	CallTimeout          time.Duration
}

// RiskScorer turns raw text into risk assessments and moderation verdicts.
// Every failure path degrades toward more review, never toward approval.
type RiskScorer struct {
	oracle         ai.Backend
	breaker        *gobreaker.CircuitBreaker
	legalThreshold int
	flagThreshold  float64
	callTimeout    time.Duration
	log            zerolog.Logger
}

// NewRiskScorer creates a new RiskScorer
func NewRiskScorer(oracle ai.Backend, opts RiskScorerOptions) *RiskScorer {
	if opts.LegalReviewThreshold <= 0 {
		opts.LegalReviewThreshold = 70
	}
	if opts.FlagThreshold <= 0 {
		opts.FlagThreshold = 0.5
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}

	log := pkglogger.WithComponent("risk_scorer")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "classification-oracle",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("oracle breaker state changed")
		},
	})

	return &RiskScorer{
		oracle:         oracle,
		breaker:        breaker,
		legalThreshold: opts.LegalReviewThreshold,
		flagThreshold:  opts.FlagThreshold,
		callTimeout:    opts.CallTimeout,
		log:            log,
	}
}

// LegalReviewThreshold returns the configured threshold (score > threshold ⇒ legal review)
func (s *RiskScorer) LegalReviewThreshold() int {
	return s.legalThreshold
}

// FallbackAssessment is the fixed conservative result used whenever the oracle is unusable
func FallbackAssessment() domain.RiskAssessment {
	return domain.RiskAssessment{
		RiskScore:           fallbackRiskScore,
		RiskLevel:           domain.LevelForScore(fallbackRiskScore),
		RequiresLegalReview: true,
		Recommendations:     []string{FallbackRecommendation},
		Fallback:            true,
	}
}

// AssessRisk never returns an error; oracle problems yield FallbackAssessment
func (s *RiskScorer) AssessRisk(ctx context.Context, title, body string) domain.RiskAssessment {
	raw, err := s.ask(ctx, riskSystemPrompt, buildRiskMessage(title, body))
	if err != nil {
		s.log.Warn().Err(err).Msg("risk assessment fell back to conservative defaults")
		oracleCallsTotal.WithLabelValues("assess", "fallback").Inc()
		return FallbackAssessment()
	}

	assessment, err := s.parseRisk(raw)
	if err != nil {
		s.log.Warn().Err(err).Str("raw", truncateRunes(raw, 200)).Msg("risk response rejected")
		oracleCallsTotal.WithLabelValues("assess", "fallback").Inc()
		return FallbackAssessment()
	}

	oracleCallsTotal.WithLabelValues("assess", "ok").Inc()
	return assessment
}

// Moderate never returns an error; oracle problems yield a review verdict
func (s *RiskScorer) Moderate(ctx context.Context, body string) domain.ModerationVerdict {
	floor := lexicalFloor(body)

	raw, err := s.ask(ctx, moderationSystemPrompt, body)
	if err != nil {
		s.log.Warn().Err(err).Msg("moderation fell back to review")
		oracleCallsTotal.WithLabelValues("moderate", "fallback").Inc()
		return fallbackVerdict(floor)
	}

	verdict, err := s.parseModeration(raw, floor)
	if err != nil {
		s.log.Warn().Err(err).Str("raw", truncateRunes(raw, 200)).Msg("moderation response rejected")
		oracleCallsTotal.WithLabelValues("moderate", "fallback").Inc()
		return fallbackVerdict(floor)
	}

	oracleCallsTotal.WithLabelValues("moderate", "ok").Inc()
	return verdict
}

// ApplyAssessment copies the risk fields onto an article; nothing else is touched
func ApplyAssessment(article *domain.Article, a domain.RiskAssessment) {
	article.RiskScore = a.RiskScore
	article.RiskLevel = a.RiskLevel
	article.ContainsAccusation = a.ContainsAccusation
	article.LegalReviewRequired = a.RequiresLegalReview
}

func (s *RiskScorer) ask(ctx context.Context, system, message string) (string, error) {
	if s.oracle == nil {
		return "", errors.New("classification oracle not configured")
	}
	out, err := s.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		return s.oracle.Complete(callCtx, system, message)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// riskRawResponse oracle 응답 구조체
type riskRawResponse struct {
	Defamation         *float64 `json:"defamation"`
	PrivacyViolation   *float64 `json:"privacy_violation"`
	FalseInformation   *float64 `json:"false_information"`
	CriminalAllegation *float64 `json:"criminal_allegation"`
	CorporateRisk      *float64 `json:"corporate_risk"`
	RiskScore          *float64 `json:"risk_score"`
	ContainsAccusation bool     `json:"contains_accusation"`
	Recommendations    []string `json:"recommendations"`
}

func (s *RiskScorer) parseRisk(rawText string) (domain.RiskAssessment, error) {
	var resp riskRawResponse
	if err := json.Unmarshal([]byte(ai.ExtractJSON(rawText)), &resp); err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("JSON 파싱 실패: %w", err)
	}
	if resp.Defamation == nil || resp.PrivacyViolation == nil || resp.FalseInformation == nil ||
		resp.CriminalAllegation == nil || resp.CorporateRisk == nil {
		return domain.RiskAssessment{}, errMissingSubscores
	}

	scores := domain.RiskScores{
		Defamation:         clampScore(*resp.Defamation),
		PrivacyViolation:   clampScore(*resp.PrivacyViolation),
		FalseInformation:   clampScore(*resp.FalseInformation),
		CriminalAllegation: clampScore(*resp.CriminalAllegation),
		CorporateRisk:      clampScore(*resp.CorporateRisk),
	}

	score := weightedRiskScore(scores)
	if resp.RiskScore != nil {
		score = clampScore(*resp.RiskScore)
	}

	a := domain.RiskAssessment{
		Scores:              scores,
		RiskScore:           score,
		RiskLevel:           domain.LevelForScore(score),
		ContainsAccusation:  resp.ContainsAccusation || scores.CriminalAllegation > domain.RiskMediumMax,
		RequiresLegalReview: score > s.legalThreshold,
	}

	for _, r := range resp.Recommendations {
		if r = strings.TrimSpace(r); r != "" {
			a.Recommendations = append(a.Recommendations, r)
		}
	}
	if a.RequiresLegalReview {
		a.Recommendations = append(a.Recommendations, "Legal review required before publication")
	}
	if a.ContainsAccusation {
		a.Recommendations = append(a.Recommendations, "Back every accusation with verified evidence")
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	return a, nil
}

// moderationRawResponse oracle 응답 구조체
type moderationRawResponse struct {
	Hate           *float64 `json:"hate"`
	Harassment     *float64 `json:"harassment"`
	Violence       *float64 `json:"violence"`
	SelfHarm       *float64 `json:"self_harm"`
	Sexual         *float64 `json:"sexual"`
	SARA           *float64 `json:"sara"`
	Defamation     *float64 `json:"defamation"`
	Flagged        bool     `json:"flagged"`
	Recommendation string   `json:"recommendation"`
	Reason         string   `json:"reason"`
}

func (s *RiskScorer) parseModeration(rawText string, floor domain.ModerationScores) (domain.ModerationVerdict, error) {
	var resp moderationRawResponse
	if err := json.Unmarshal([]byte(ai.ExtractJSON(rawText)), &resp); err != nil {
		return domain.ModerationVerdict{}, fmt.Errorf("JSON 파싱 실패: %w", err)
	}
	if resp.Hate == nil || resp.Harassment == nil || resp.Violence == nil {
		return domain.ModerationVerdict{}, errMissingSubscores
	}

	scores := domain.ModerationScores{
		Hate:       maxFloat(clampUnit(resp.Hate), floor.Hate),
		Harassment: maxFloat(clampUnit(resp.Harassment), floor.Harassment),
		Violence:   maxFloat(clampUnit(resp.Violence), floor.Violence),
		SelfHarm:   maxFloat(clampUnit(resp.SelfHarm), floor.SelfHarm),
		Sexual:     maxFloat(clampUnit(resp.Sexual), floor.Sexual),
		SARA:       maxFloat(clampUnit(resp.SARA), floor.SARA),
		Defamation: maxFloat(clampUnit(resp.Defamation), floor.Defamation),
	}

	v := domain.ModerationVerdict{
		Scores:         scores,
		Flagged:        resp.Flagged,
		Recommendation: domain.ParseRecommendation(resp.Recommendation),
		Reason:         strings.TrimSpace(resp.Reason),
	}

	if scores.Max() >= s.flagThreshold {
		v.Flagged = true
	}
	// approve 인데 점수가 높으면 review 로 올린다
	if v.Recommendation == domain.RecommendApprove && v.Flagged {
		v.Recommendation = domain.RecommendReview
		if v.Reason == "" {
			v.Reason = "Escalated to review: category score above threshold"
		}
	}
	return v, nil
}

func fallbackVerdict(floor domain.ModerationScores) domain.ModerationVerdict {
	return domain.ModerationVerdict{
		Scores:         floor,
		Flagged:        true,
		Recommendation: domain.RecommendReview,
		Reason:         "Automated moderation unavailable — queued for manual review",
	}
}

var (
	accusationTerms = []string{
		"thief", "thieves", "criminal", "corrupt", "fraud", "scammer", "liar",
		"maling", "pencuri", "koruptor", "penipu", "penjahat", "pembohong",
	}
	addressTerms = []string{"you ", "you're", "kalian", "kamu", "anda", "lu ", "lo "}
)

// lexicalFloor gives obvious accusations a minimum score so a lenient oracle cannot approve them
func lexicalFloor(body string) domain.ModerationScores {
	lower := " " + strings.ToLower(body) + " "
	var floor domain.ModerationScores

	accused := false
	for _, term := range accusationTerms {
		if strings.Contains(lower, term) {
			accused = true
			break
		}
	}
	if !accused {
		return floor
	}

	floor.Defamation = 0.6
	for _, term := range addressTerms {
		if strings.Contains(lower, term) {
			floor.Harassment = 0.6
			break
		}
	}
	return floor
}

func weightedRiskScore(s domain.RiskScores) int {
	w := riskWeights
	total := float64(s.Defamation)*w.defamation +
		float64(s.PrivacyViolation)*w.privacy +
		float64(s.FalseInformation)*w.falseInfo +
		float64(s.CriminalAllegation)*w.criminal +
		float64(s.CorporateRisk)*w.corporate
	return domain.ClampInt(int(math.Round(total)), 0, 100)
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return fallbackRiskScore
	}
	return domain.ClampInt(int(math.Round(domain.ClampFloat(v, 0, 100))), 0, 100)
}

func clampUnit(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return domain.ClampFloat(*v, 0, 1)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func buildRiskMessage(title, body string) string {
	var parts []string
	if title != "" {
		parts = append(parts, fmt.Sprintf("Title: %s", title))
	}
	parts = append(parts, fmt.Sprintf("Body:\n%s", body))
	return strings.Join(parts, "\n\n")
}

const riskSystemPrompt = `You are the legal-risk desk of an investigative newsroom.
Score the article below for publication risk. Every score is an integer from 0 to 100.

- defamation: harm to the reputation of an identifiable person or organisation
- privacy_violation: exposure of private data (addresses, health, family, ids)
- false_information: claims that are unsupported or likely false
- criminal_allegation: statements that someone committed a crime
- corporate_risk: exposure to lawsuits from companies or advertisers

Also return:
- risk_score: overall risk 0-100
- contains_accusation: true if the text accuses a named party of wrongdoing
- recommendations: short editorial actions, at most five

Return only JSON:
{
  "defamation": number,
  "privacy_violation": number,
  "false_information": number,
  "criminal_allegation": number,
  "corporate_risk": number,
  "risk_score": number,
  "contains_accusation": boolean,
  "recommendations": string[]
}`

const moderationSystemPrompt = `You moderate reader comments for a news site.
Rate the comment in each category from 0.0 to 1.0:
hate, harassment, violence, self_harm, sexual,
sara (ethnic, religious, racial or inter-group incitement), defamation.

Set flagged to true if any category is a concern.
recommendation is one of "approve", "review", "reject".
reason is one sentence.

Return only JSON:
{
  "hate": number, "harassment": number, "violence": number, "self_harm": number,
  "sexual": number, "sara": number, "defamation": number,
  "flagged": boolean, "recommendation": string, "reason": string
}`
