// Package answer turns ranked retrieval results into a model-ready
// context window and, through the Synthesizer, into a final natural
// language answer with source citations.
package answer
