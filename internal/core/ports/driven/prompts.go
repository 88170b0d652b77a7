package driven

// Prompt names used by answer composers.
const (
	// PromptAnswerSystem is the system instruction sent with every question.
	PromptAnswerSystem = "answer_system"

	// PromptAnswer is the user message template. It takes the formatted
	// context blocks and the question as two %s placeholders, in that order.
	PromptAnswer = "answer"
)

// PromptStore loads LLM prompt templates by name.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}
