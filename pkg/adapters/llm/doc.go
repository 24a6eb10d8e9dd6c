// Package llm provides text-generation clients and their factory.
// Provider failures are classified into retryable and permanent
// classes; the executor decides whether to back off and retry.
package llm
