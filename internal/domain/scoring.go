package domain

import "strconv"

// Evaluate grades a completed answer buffer against a quiz. It is pure:
// no side effects, identical inputs yield identical results.
//
// Open-ended questions never earn credit but still count toward the
// denominator, so percentage scores stay below 100% whenever one exists.
func Evaluate(quiz Quiz, answers map[int]string) (int, []QuestionResult) {
	score := 0
	results := make([]QuestionResult, 0, len(quiz.Questions))

	for i, question := range quiz.Questions {
		userAnswer := answers[i]
		result := QuestionResult{
			QuestionIndex: i,
			QuestionText:  question.Text,
			Type:          question.Type,
			UserAnswer:    userAnswer,
		}

		switch question.Type {
		case QuestionMCQ:
			result.CorrectAnswer = resolveOptionText(question)
			if userAnswer != "" && userAnswer == question.CorrectAnswer {
				result.IsCorrect = Correct
				score++
			} else {
				result.IsCorrect = Incorrect
			}
		case QuestionTrueFalse:
			result.CorrectAnswer = question.CorrectAnswer
			if userAnswer == question.CorrectAnswer {
				result.IsCorrect = Correct
				score++
			} else {
				result.IsCorrect = Incorrect
			}
		case QuestionOpenEnded:
			result.IsCorrect = NotApplicable
		default:
			// Unknown types are tolerated, never graded.
			result.IsCorrect = NotApplicable
		}

		results = append(results, result)
	}

	return score, results
}

// resolveOptionText maps the stored option index to its display text.
// Falls back to the raw value when the index does not resolve.
func resolveOptionText(question Question) string {
	idx, err := strconv.Atoi(question.CorrectAnswer)
	if err != nil || idx < 0 || idx >= len(question.Options) {
		return question.CorrectAnswer
	}
	return question.Options[idx].Text
}
