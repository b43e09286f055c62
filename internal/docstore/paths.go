package docstore

// Collection path helpers. Quizzes and attempts are scoped per user, keyed
// by the opaque identifier the identity provider hands out.

// UserQuizzes is the quizzes collection of a single user.
func UserQuizzes(userID string) string {
	return "users/" + userID + "/quizzes"
}

// UserAttempts is the quiz-attempts collection of a single user.
func UserAttempts(userID string) string {
	return "users/" + userID + "/quiz-attempts"
}
