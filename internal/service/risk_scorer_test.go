package service

import (
	"context"
	"errors"
	"testing"

	"github.com/damoang/angple-editorial/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock Backend ---

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Complete(ctx context.Context, systemInstruction, userMessage string) (string, error) {
	args := m.Called(systemInstruction, userMessage)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) ListModels(ctx context.Context) ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestScorer(oracle *mockBackend) *RiskScorer {
	return NewRiskScorer(oracle, RiskScorerOptions{LegalReviewThreshold: 70, FlagThreshold: 0.5})
}

func assertFallback(t *testing.T, a domain.RiskAssessment) {
	t.Helper()
	assert.Equal(t, 50, a.RiskScore)
	assert.Equal(t, domain.RiskMedium, a.RiskLevel)
	assert.True(t, a.RequiresLegalReview)
	assert.True(t, a.Fallback)
	assert.Equal(t, []string{FallbackRecommendation}, a.Recommendations)
}

// --- AssessRisk ---

func TestAssessRisk_Success(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", riskSystemPrompt, mock.Anything).Return(
		"```json\n{\"defamation\":80,\"privacy_violation\":10,\"false_information\":40,"+
			"\"criminal_allegation\":90,\"corporate_risk\":5,\"risk_score\":75,"+
			"\"contains_accusation\":true,\"recommendations\":[\"cite the court filing\"]}\n```", nil)

	a := newTestScorer(oracle).AssessRisk(context.Background(), "Bupati diduga korupsi", "body")

	assert.False(t, a.Fallback)
	assert.Equal(t, 75, a.RiskScore)
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
	assert.True(t, a.RequiresLegalReview)
	assert.True(t, a.ContainsAccusation)
	assert.Equal(t, 80, a.Scores.Defamation)
	assert.Contains(t, a.Recommendations, "cite the court filing")
	oracle.AssertExpectations(t)
}

func TestAssessRisk_ClampsSubscores(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", mock.Anything, mock.Anything).Return(
		`{"defamation":250,"privacy_violation":-20,"false_information":30,"criminal_allegation":0,"corporate_risk":101}`, nil)

	a := newTestScorer(oracle).AssessRisk(context.Background(), "", "body")

	assert.Equal(t, 100, a.Scores.Defamation)
	assert.Equal(t, 0, a.Scores.PrivacyViolation)
	assert.Equal(t, 100, a.Scores.CorporateRisk)
	// weighted: 100*.3 + 0 + 30*.2 + 0 + 100*.1 = 46
	assert.Equal(t, 46, a.RiskScore)
	assert.Equal(t, domain.RiskMedium, a.RiskLevel)
	assert.False(t, a.RequiresLegalReview)
}

func TestAssessRisk_LegalReviewThresholdIsStrict(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", mock.Anything, mock.Anything).Return(
		`{"defamation":0,"privacy_violation":0,"false_information":0,"criminal_allegation":0,"corporate_risk":0,"risk_score":70}`, nil)

	a := newTestScorer(oracle).AssessRisk(context.Background(), "", "body")

	assert.Equal(t, 70, a.RiskScore)
	assert.False(t, a.RequiresLegalReview, "70 is not > 70")
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
}

func TestAssessRisk_FallbackOnOracleError(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded)

	assertFallback(t, newTestScorer(oracle).AssessRisk(context.Background(), "t", "b"))
}

func TestAssessRisk_FallbackOnMalformedJSON(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", mock.Anything, mock.Anything).Return("I cannot help with that {", nil)

	assertFallback(t, newTestScorer(oracle).AssessRisk(context.Background(), "t", "b"))
}

func TestAssessRisk_FallbackOnMissingSubscores(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", mock.Anything, mock.Anything).Return(`{"risk_score":5}`, nil)

	assertFallback(t, newTestScorer(oracle).AssessRisk(context.Background(), "t", "b"))
}

func TestAssessRisk_FallbackWithoutOracle(t *testing.T) {
	scorer := NewRiskScorer(nil, RiskScorerOptions{})
	assertFallback(t, scorer.AssessRisk(context.Background(), "t", "b"))
}

func TestAssessRisk_OpenBreakerStillFallsBack(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
	scorer := newTestScorer(oracle)

	for i := 0; i < 8; i++ {
		assertFallback(t, scorer.AssessRisk(context.Background(), "t", "b"))
	}
	// breaker opens after 5 consecutive failures and stops calling the oracle
	oracle.AssertNumberOfCalls(t, "Complete", 5)
}

// --- Moderate ---

func TestModerate_AccusationIsNeverApproved(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", moderationSystemPrompt, mock.Anything).Return(
		`{"hate":0.1,"harassment":0.7,"violence":0,"self_harm":0,"sexual":0,"sara":0,"defamation":0.8,`+
			`"flagged":true,"recommendation":"review","reason":"accuses readers of crimes"}`, nil)

	v := newTestScorer(oracle).Moderate(context.Background(), "You are all thieves and criminals")

	assert.True(t, v.Scores.Harassment >= 0.5 || v.Scores.Defamation >= 0.5)
	assert.NotEqual(t, domain.RecommendApprove, v.Recommendation)
	assert.NotEqual(t, domain.CommentApproved, v.CommentStatus())
}

func TestModerate_LenientOracleIsEscalated(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", mock.Anything, mock.Anything).Return(
		`{"hate":0,"harassment":0,"violence":0,"self_harm":0,"sexual":0,"sara":0,"defamation":0,`+
			`"flagged":false,"recommendation":"approve","reason":"fine"}`, nil)

	v := newTestScorer(oracle).Moderate(context.Background(), "You are all thieves and criminals")

	assert.GreaterOrEqual(t, v.Scores.Defamation, 0.6)
	assert.GreaterOrEqual(t, v.Scores.Harassment, 0.6)
	assert.True(t, v.Flagged)
	assert.Equal(t, domain.RecommendReview, v.Recommendation)
	assert.Equal(t, domain.CommentPending, v.CommentStatus())
}

func TestModerate_CleanCommentApproved(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", mock.Anything, mock.Anything).Return(
		`{"hate":0.01,"harassment":0.02,"violence":0.3,"self_harm":0,"sexual":0,"sara":0,"defamation":0,`+
			`"flagged":false,"recommendation":"approve","reason":"ok"}`, nil)

	v := newTestScorer(oracle).Moderate(context.Background(), "Terima kasih atas liputannya")

	require.Equal(t, domain.RecommendApprove, v.Recommendation)
	assert.Equal(t, domain.CommentApproved, v.CommentStatus())
	assert.Equal(t, 0.3, v.ToxicityScore())
}

func TestModerate_ClampsAndRejects(t *testing.T) {
	oracle := new(mockBackend)
	oracle.On("Complete", mock.Anything, mock.Anything).Return(
		`{"hate":3,"harassment":-1,"violence":0.2,"recommendation":"reject","reason":"slur"}`, nil)

	v := newTestScorer(oracle).Moderate(context.Background(), "...")

	assert.Equal(t, 1.0, v.Scores.Hate)
	assert.Equal(t, 0.0, v.Scores.Harassment)
	assert.Equal(t, domain.RecommendReject, v.Recommendation)
	assert.Equal(t, domain.CommentFlagged, v.CommentStatus())
}

func TestModerate_FallbackIsReview(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{"timeout", "", context.DeadlineExceeded},
		{"malformed", "not json", nil},
		{"missing fields", `{"recommendation":"approve"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := new(mockBackend)
			oracle.On("Complete", mock.Anything, mock.Anything).Return(tt.out, tt.err)

			v := newTestScorer(oracle).Moderate(context.Background(), "halo")

			assert.Equal(t, domain.RecommendReview, v.Recommendation)
			assert.True(t, v.Flagged)
			assert.Equal(t, domain.CommentPending, v.CommentStatus())
		})
	}
}

func TestApplyAssessment(t *testing.T) {
	article := &domain.Article{Title: "x", Status: domain.StatusDraft}
	ApplyAssessment(article, FallbackAssessment())

	assert.Equal(t, 50, article.RiskScore)
	assert.Equal(t, domain.RiskMedium, article.RiskLevel)
	assert.True(t, article.LegalReviewRequired)
	assert.Equal(t, domain.StatusDraft, article.Status)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "Banjir", truncateRunes("Banjir", 10))
	assert.Equal(t, "발행", truncateRunes("발행 요건", 2))
}
