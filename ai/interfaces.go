package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// Embed generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// The returned slice contains embeddings in the same order as the
	// input texts. Returns an error if any embedding fails.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EntityExtractor identifies named entities in text.
// Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// ExtractEntities analyzes text and returns the entities it mentions,
	// each with a name and a type from EntityTypes. A malformed model
	// response yields an empty slice, not an error; only transport and
	// provider failures are reported as errors.
	ExtractEntities(ctx context.Context, text string) ([]ExtractedEntity, error)
}

// Message is one turn of a chat conversation passed to a Completer.
type Message struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// Completer generates chat completions.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends the system prompt and conversation to the model and
	// returns the generated text. When jsonMode is true the model is
	// instructed to emit a JSON document.
	Complete(ctx context.Context, system string, messages []Message, jsonMode bool) (string, error)
}

// ExtractedEntity is a named entity identified in text.
type ExtractedEntity struct {
	// Name is the entity as it appears in the text, e.g. "Bangkok",
	// "Mandarin Oriental", "TG-910".
	Name string

	// Type categorizes the entity. Must be one of EntityTypes;
	// unknown values are coerced to TypeOther.
	Type string
}

// Provider aggregates the AI services for convenient initialization and
// lifecycle management. Services returned by a provider share its
// configuration and underlying HTTP resources.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// EntityExtractor returns the entity extraction service.
	EntityExtractor() EntityExtractor

	// Completer returns the chat completion service.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close the provider and its services must not be used.
	Close() error
}
