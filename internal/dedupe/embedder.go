package dedupe

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder produces embeddings from a local Ollama model through
// langchaingo.
type OllamaEmbedder struct {
	embedder embeddings.Embedder
}

// NewOllamaEmbedder connects to an Ollama server running the given
// embedding model. serverURL may be empty for the default endpoint.
func NewOllamaEmbedder(serverURL, modelName string) (*OllamaEmbedder, error) {
	opts := []ollama.Option{ollama.WithModel(modelName)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: ollama init")
	}

	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: create embedder")
	}

	return &OllamaEmbedder{embedder: embedder}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: embed text")
	}
	if len(vecs) == 0 {
		return nil, eris.New("dedupe: embedder returned no vectors")
	}
	return vecs[0], nil
}
