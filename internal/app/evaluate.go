package app

import (
	"math"
	"strings"

	"escape-progress-service/internal/domain"
)

// Evaluate compares a submitted answer to the canonical one: outer
// whitespace trimmed, case-insensitive, exact match. No fuzzy matching and
// no numeric tolerance; ambiguous phrasing is the content author's problem.
func Evaluate(submitted, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(canonical))
}

// QuizAnswerInput is one raw answer from a bulk quiz submission.
type QuizAnswerInput struct {
	Order     int
	Answer    string
	TimeSpent int // seconds
}

// GradeQuiz grades a bulk submission against the stage set and returns the
// graded answers, the correct count and the rounded percentage.
func GradeQuiz(set domain.StageSet, answers []QuizAnswerInput) ([]domain.QuizAnswer, int, int) {
	graded := make([]domain.QuizAnswer, 0, len(answers))
	correct := 0
	for _, in := range answers {
		stage, ok := set.StageByNumber(in.Order)
		isCorrect := ok && Evaluate(in.Answer, stage.Answer)
		if isCorrect {
			correct++
		}
		graded = append(graded, domain.QuizAnswer{
			Order:     in.Order,
			Answer:    in.Answer,
			IsCorrect: isCorrect,
			TimeSpent: in.TimeSpent,
		})
	}
	percentage := 0
	if len(graded) > 0 {
		percentage = int(math.Round(100 * float64(correct) / float64(len(graded))))
	}
	return graded, correct, percentage
}
