package classifier

import (
	"strings"

	"github.com/humanand/humanand/pkg/llm"
	"github.com/humanand/humanand/pkg/models"
)

// ResultKind is the outcome category of a classification.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultUpdate
	ResultQuestion
)

func (k ResultKind) String() string {
	switch k {
	case ResultUpdate:
		return "UPDATE"
	case ResultQuestion:
		return "QUESTION"
	default:
		return "NONE"
	}
}

// Result is a classification outcome. Only Update and Question carry a fact.
type Result struct {
	kind ResultKind
	fact string
}

// None is the result for messages that carry no project fact.
func None() Result { return Result{kind: ResultNone} }

// Update is a result recording a decision, status change or commitment.
func Update(fact string) Result { return Result{kind: ResultUpdate, fact: fact} }

// Question is a result recording an open question or blocker.
func Question(fact string) Result { return Result{kind: ResultQuestion, fact: fact} }

// Kind returns the result category.
func (r Result) Kind() ResultKind { return r.kind }

// Fact returns the extracted fact text, empty for None.
func (r Result) Fact() string { return r.fact }

// EventKind maps the result onto the pending item kind.
func (r Result) EventKind() (models.EventKind, bool) {
	switch r.kind {
	case ResultUpdate:
		return models.EventKindUpdate, true
	case ResultQuestion:
		return models.EventKindQuestion, true
	default:
		return "", false
	}
}

// ParseResult turns raw model output into a Result.
//
// The first non-empty line is used. The tag before the first '|' is matched
// case-insensitively; surrounding whitespace and backticks are trimmed from
// both tag and fact. Anything unrecognized, or a tagged line with an empty
// fact, is None.
func ParseResult(raw string) Result {
	line := firstLine(llm.StripThinking(raw))
	if line == "" {
		return None()
	}

	tag, fact, _ := strings.Cut(line, "|")
	tag = strings.ToUpper(trim(tag))
	fact = trim(fact)

	switch tag {
	case "UPDATE":
		if fact != "" {
			return Update(fact)
		}
	case "QUESTION":
		if fact != "" {
			return Question(fact)
		}
	}
	return None()
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = trim(line); line != "" {
			return line
		}
	}
	return ""
}

func trim(s string) string {
	return strings.Trim(s, " \t\r\n`")
}
