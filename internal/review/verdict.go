package review

import "fmt"

// Review status codes. The set is closed; anything else is a hard error.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

// verdicts maps each status code to its fixed notification sentence.
// Static for the process lifetime; the wording is part of the contract
// with the end user and is golden-tested.
var verdicts = map[string]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// ParseStatus turns one review entry into the notification sentence.
// Pure and deterministic: no side effects, fully defined by its input.
func ParseStatus(entry any) (string, error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return "", &ShapeError{Reason: fmt.Sprintf("homework entry is %T, want object", entry)}
	}
	rawStatus, ok := m["status"]
	if !ok {
		return "", &ShapeError{Reason: `homework entry missing "status"`}
	}
	rawName, ok := m["homework_name"]
	if !ok {
		return "", &ShapeError{Reason: `homework entry missing "homework_name"`}
	}
	status, ok := rawStatus.(string)
	if !ok {
		return "", &ShapeError{Reason: fmt.Sprintf(`"status" is %T, want string`, rawStatus)}
	}
	name, ok := rawName.(string)
	if !ok {
		return "", &ShapeError{Reason: fmt.Sprintf(`"homework_name" is %T, want string`, rawName)}
	}

	verdict, ok := verdicts[status]
	if !ok {
		return "", &UnknownStatusError{Status: status}
	}
	return fmt.Sprintf("Изменился статус проверки работы %q. %s", name, verdict), nil
}
