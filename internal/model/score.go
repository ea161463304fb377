package model

import "time"

// Criterion is one of the four judged dimensions.
type Criterion string

const (
	CriterionInnovation         Criterion = "innovation"
	CriterionTechnicalExecution Criterion = "technical_execution"
	CriterionMarketPotential    Criterion = "market_potential"
	CriterionUserExperience     Criterion = "user_experience"
)

// AllCriteria lists every criterion in canonical order.
var AllCriteria = []Criterion{
	CriterionInnovation,
	CriterionTechnicalExecution,
	CriterionMarketPotential,
	CriterionUserExperience,
}

// Persona is one of the four fixed evaluator profiles. The set is closed
// configuration: adding a persona means adding a constant and a weight row.
type Persona string

const (
	PersonaInvestor  Persona = "investor"
	PersonaEngineer  Persona = "engineer"
	PersonaEconomist Persona = "economist"
	PersonaCommunity Persona = "community"
)

// AllPersonas lists every persona in canonical order.
var AllPersonas = []Persona{
	PersonaInvestor,
	PersonaEngineer,
	PersonaEconomist,
	PersonaCommunity,
}

// personaWeights is the fixed per-criterion weight table.
var personaWeights = map[Persona]map[Criterion]float64{
	PersonaInvestor: {
		CriterionMarketPotential:    1.5,
		CriterionInnovation:         1.2,
		CriterionTechnicalExecution: 0.8,
		CriterionUserExperience:     1.0,
	},
	PersonaEngineer: {
		CriterionTechnicalExecution: 1.5,
		CriterionUserExperience:     1.2,
		CriterionInnovation:         1.0,
		CriterionMarketPotential:    0.8,
	},
	PersonaEconomist: {
		CriterionMarketPotential:    1.3,
		CriterionUserExperience:     1.3,
		CriterionTechnicalExecution: 0.8,
		CriterionInnovation:         0.7,
	},
	PersonaCommunity: {
		CriterionInnovation:         1.3,
		CriterionUserExperience:     1.2,
		CriterionMarketPotential:    1.0,
		CriterionTechnicalExecution: 0.7,
	},
}

// Weights returns the persona's weight vector over the four criteria.
func (p Persona) Weights() map[Criterion]float64 {
	return personaWeights[p]
}

// WeightSum returns the sum of the persona's criterion weights. The vectors
// do not share a common sum, so per-persona totals must be scaled by this
// before they are comparable.
func (p Persona) WeightSum() float64 {
	sum := 0.0
	for _, w := range personaWeights[p] {
		sum += w
	}
	return sum
}

// Valid reports whether p is one of the configured personas.
func (p Persona) Valid() bool {
	_, ok := personaWeights[p]
	return ok
}

// PersonaScore holds one persona's raw scores and the weighted total
// Σ(raw_i × weight_i) over the four criteria.
type PersonaScore struct {
	Raw           map[Criterion]float64 `json:"raw_scores"`
	Evidence      map[Criterion]string  `json:"evidence,omitempty"`
	WeightedTotal float64               `json:"weighted_total"`
}

// ScoreRecord is one round's scoring result for a submission. Records are
// append-only: a new record is written per round, never overwritten.
type ScoreRecord struct {
	ID             int64                    `json:"id"`
	SubmissionID   int64                    `json:"submission_id"`
	Round          int                      `json:"round"`
	PerPersona     map[Persona]PersonaScore `json:"per_persona"`
	RoundTotal     float64                  `json:"round_total"`
	CommunityBonus *float64                 `json:"community_bonus,omitempty"` // round 2 only, in [0, 2.0]
	FinalScore     float64                  `json:"final_score"`
	CreatedAt      time.Time                `json:"created_at"`
}
