package domain

// RiskLevel 위험도 등급 (closed enum)
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Risk score band upper bounds (inclusive)
const (
	RiskLowMax    = 30
	RiskMediumMax = 60
	RiskHighMax   = 80
)

// LevelForScore maps a 0..100 risk score to its level.
// Out-of-range input is clamped first so the function is total.
func LevelForScore(score int) RiskLevel {
	score = ClampInt(score, 0, 100)
	switch {
	case score <= RiskLowMax:
		return RiskLow
	case score <= RiskMediumMax:
		return RiskMedium
	case score <= RiskHighMax:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// RequiresLegalStamp reports whether the level blocks publication without legal sign-off
func (l RiskLevel) RequiresLegalStamp() bool {
	return l == RiskHigh || l == RiskCritical
}

// RiskScores 카테고리별 위험 점수 (0-100)
type RiskScores struct {
	Defamation         int `json:"defamation"`
	PrivacyViolation   int `json:"privacy_violation"`
	FalseInformation   int `json:"false_information"`
	CriminalAllegation int `json:"criminal_allegation"`
	CorporateRisk      int `json:"corporate_risk"`
}

// RiskAssessment is the scorer's output for a title/body pair
type RiskAssessment struct {
	Scores              RiskScores `json:"scores"`
	RiskScore           int        `json:"risk_score"`
	RiskLevel           RiskLevel  `json:"risk_level"`
	ContainsAccusation  bool       `json:"contains_accusation"`
	RequiresLegalReview bool       `json:"requires_legal_review"`
	Recommendations     []string   `json:"recommendations"`
	Fallback            bool       `json:"fallback"`
}

// ClampInt limits v to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFloat limits v to [lo, hi]
func ClampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AssessRiskRequest represents an ad hoc assessment request
type AssessRiskRequest struct {
	Title string `json:"title"`
	Body  string `json:"body" binding:"required"`
}
