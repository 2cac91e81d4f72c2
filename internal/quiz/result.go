package quiz

import (
	"math"

	"github.com/pavelanni/shieldly/internal/model"
)

// TierFor maps a score to its tier. Thresholds are on the correct ratio:
// 1.0 is Perfect, 0.7 and above Great, 0.4 and above Good.
func TierFor(correct, total int) model.Tier {
	switch {
	case total <= 0:
		return model.TierKeepPracticing
	case correct >= total:
		return model.TierPerfect
	case correct*10 >= total*7:
		return model.TierGreat
	case correct*10 >= total*4:
		return model.TierGood
	default:
		return model.TierKeepPracticing
	}
}

// ComputeResult builds the result payload from a full set of answer records.
func ComputeResult(answers []model.AnswerRecord, badges []model.Badge) model.Result {
	correct := 0
	for _, a := range answers {
		if a.Correct {
			correct++
		}
	}
	total := len(answers)
	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(correct) * 100 / float64(total)))
	}
	recs := make([]model.AnswerRecord, total)
	copy(recs, answers)
	if badges == nil {
		badges = []model.Badge{}
	}
	return model.Result{
		Correct: correct,
		Total:   total,
		Percent: percent,
		Tier:    TierFor(correct, total),
		Answers: recs,
		Badges:  badges,
	}
}
