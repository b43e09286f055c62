package domain

import "fmt"

// Correctness is the tri-state grading marker: correct, incorrect, or not
// applicable for ungraded (open-ended) questions. It serializes to JSON
// true/false/null so results renderers can tell an ungraded question from a
// graded wrong answer.
type Correctness int

const (
	NotApplicable Correctness = iota
	Incorrect
	Correct
)

func (c Correctness) String() string {
	switch c {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "not_applicable"
	}
}

func (c Correctness) MarshalJSON() ([]byte, error) {
	switch c {
	case Correct:
		return []byte("true"), nil
	case Incorrect:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (c *Correctness) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true":
		*c = Correct
	case "false":
		*c = Incorrect
	case "null":
		*c = NotApplicable
	default:
		return fmt.Errorf("invalid correctness value %q", data)
	}
	return nil
}
