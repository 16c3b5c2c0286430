package prompts

import "strings"

// ClassificationSystem instructs the model to answer with a single tagged line.
const ClassificationSystem = `You watch a team's project channel and decide whether the newest message
changes what the team knows about the project.

Answer with exactly one line, in one of these forms:
NONE
UPDATE|<fact>
QUESTION|<fact>

UPDATE: the message states a decision, a change of plan, a deadline, an owner
or another fact the team should remember. Prefix the fact with a short
category such as "decision:", "deadline:", "owner:" or "status:".
QUESTION: the message raises an open question, blocker or disagreement that
needs an answer. Prefix the fact with "blocker:" or "question:".
NONE: small talk, acknowledgements, or anything already settled.

Write the fact as one short self-contained sentence. Do not add anything else.`

// BuildClassificationPrompt creates the user prompt for classifying text.
// conversation is the recent channel history, oldest first, one message per
// line; the section is left out when it is blank.
func BuildClassificationPrompt(text, conversation string) string {
	var prompt strings.Builder

	if conversation = strings.TrimSpace(conversation); conversation != "" {
		prompt.WriteString("Recent conversation (oldest first):\n")
		prompt.WriteString(conversation)
		prompt.WriteString("\n\n")
	}

	prompt.WriteString("Newest message:\n")
	prompt.WriteString(text)

	return prompt.String()
}
