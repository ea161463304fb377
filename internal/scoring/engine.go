package scoring

import (
	"math"
	"time"

	"codearena.app/arbiter/common/id"
	"codearena.app/arbiter/internal/model"
)

// targetMean is the round mean the batch normalization steers toward.
const targetMean = 6.0

// maxCommunityBonus caps the Round 2 community bonus.
const maxCommunityBonus = 2.0

// WeightedTotal computes Σ(raw_i × weight_i) for a persona's raw scores.
func WeightedTotal(persona model.Persona, raw map[model.Criterion]float64) float64 {
	weights := persona.Weights()
	total := 0.0
	for _, criterion := range model.AllCriteria {
		total += raw[criterion] * weights[criterion]
	}
	return total
}

// RoundTotal averages the persona weighted totals back onto a 0-10 scale.
// Each total is divided by its own persona's weight sum before averaging;
// the weight vectors do not share a common sum, so a fixed divisor would
// penalize submissions favored by the lighter-weighted personas.
func RoundTotal(perPersona map[model.Persona]model.PersonaScore) float64 {
	if len(perPersona) == 0 {
		return 0
	}
	sum := 0.0
	for persona, ps := range perPersona {
		sum += ps.WeightedTotal / persona.WeightSum()
	}
	return sum / float64(len(perPersona))
}

// CommunityBonus maps a community vote score in [0, 100] onto [0, 2].
func CommunityBonus(communityScore float64) float64 {
	if communityScore < 0 {
		return 0
	}
	return maxCommunityBonus * math.Min(1, communityScore/100)
}

// Normalize rescales a batch of round totals so their mean lands on the
// target. The transform is linear (score + shift), so relative order within
// the batch is preserved; results are clamped to [0, 10] and rounded to one
// decimal. A batch of one is returned as-is apart from clamp and rounding:
// there is no cohort to normalize against.
func Normalize(totals []float64) []float64 {
	if len(totals) == 0 {
		return nil
	}

	out := make([]float64, len(totals))

	if len(totals) == 1 {
		out[0] = clampRound(totals[0])
		return out
	}

	mean := 0.0
	for _, t := range totals {
		mean += t
	}
	mean /= float64(len(totals))

	shift := targetMean - mean
	for i, t := range totals {
		out[i] = clampRound(t + shift)
	}
	return out
}

func clampRound(score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return math.Round(score*10) / 10
}

// BuildRecord assembles an append-only score record for one submission and
// round. normalizedTotal is the submission's entry from Normalize;
// communityScore is nil for Round 1.
func BuildRecord(submissionID int64, round int, perPersona map[model.Persona]model.PersonaScore, normalizedTotal float64, communityScore *float64) model.ScoreRecord {
	record := model.ScoreRecord{
		ID:           id.New(),
		SubmissionID: submissionID,
		Round:        round,
		PerPersona:   perPersona,
		RoundTotal:   normalizedTotal,
		FinalScore:   normalizedTotal,
		CreatedAt:    time.Now().UTC(),
	}

	if communityScore != nil {
		bonus := CommunityBonus(*communityScore)
		record.CommunityBonus = &bonus
		record.FinalScore = clampRound(normalizedTotal + bonus)
	}

	return record
}
