package model

// Pillar names one of the five sub-scores.
type Pillar string

const (
	PillarPlanning       Pillar = "planning"
	PillarUrgency        Pillar = "urgency"
	PillarLeadEngagement Pillar = "lead_engagement"
	PillarSystems        Pillar = "systems"
	PillarExecution      Pillar = "execution"
)

// ScoreTypeOverall is the history score type that carries the overall score.
const ScoreTypeOverall = "overall"

// MaxPillarScore is the cap applied to every pillar.
const MaxPillarScore = 20

// PillarOrder is the fixed order used for iteration and tie-breaks.
var PillarOrder = [...]Pillar{
	PillarPlanning,
	PillarUrgency,
	PillarLeadEngagement,
	PillarSystems,
	PillarExecution,
}

var pillarLabels = map[Pillar]string{
	PillarPlanning:       "Planning",
	PillarUrgency:        "Urgency",
	PillarLeadEngagement: "Lead Engagement",
	PillarSystems:        "Systems",
	PillarExecution:      "Execution",
}

// Label is the human readable pillar name. Unknown pillars return their raw value.
func (p Pillar) Label() string {
	if l, ok := pillarLabels[p]; ok {
		return l
	}
	return string(p)
}

// Valid reports whether p is one of the five known pillars.
func (p Pillar) Valid() bool {
	_, ok := pillarLabels[p]
	return ok
}

// PillarScores holds the five sub-scores, each in [0, MaxPillarScore].
type PillarScores struct {
	Planning       int `json:"planning"`
	Urgency        int `json:"urgency"`
	LeadEngagement int `json:"lead_engagement"`
	Systems        int `json:"systems"`
	Execution      int `json:"execution"`
}

// Get returns the score for p, or 0 for an unknown pillar.
func (s PillarScores) Get(p Pillar) int {
	switch p {
	case PillarPlanning:
		return s.Planning
	case PillarUrgency:
		return s.Urgency
	case PillarLeadEngagement:
		return s.LeadEngagement
	case PillarSystems:
		return s.Systems
	case PillarExecution:
		return s.Execution
	default:
		return 0
	}
}

// Overall is the sum of the five pillars.
func (s PillarScores) Overall() int {
	return s.Planning + s.Urgency + s.LeadEngagement + s.Systems + s.Execution
}
