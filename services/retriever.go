package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/podbrah/podbrah-backend/apperr"
)

var (
	ErrEmbedding         = apperr.New(apperr.KindUpstream, "embedding_failed", "Failed to process your message, please try again")
	ErrRetrieval         = apperr.New(apperr.KindUpstream, "retrieval_failed", "Failed to search the podcast, please try again")
	ErrNoRelevantContent = apperr.New(apperr.KindUpstream, "no_relevant_content", "No relevant content found")
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Chunk struct {
	ID         int64   `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Retriever returns the passages of one podcast most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, podcastID, query string) ([]Chunk, error)
}

const (
	DefaultMatchThreshold = 0.78
	DefaultMatchCount     = 5
)

// VectorRetriever calls the match_documents function installed next to the embeddings table.
type VectorRetriever struct {
	db        *gorm.DB
	embedder  Embedder
	threshold float64
	count     int
}

func NewVectorRetriever(db *gorm.DB, embedder Embedder, threshold float64, count int) *VectorRetriever {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	if count <= 0 {
		count = DefaultMatchCount
	}
	return &VectorRetriever{db: db, embedder: embedder, threshold: threshold, count: count}
}

const matchDocumentsSQL = `SELECT id, content, similarity
FROM match_documents(query_embedding => ?::vector, match_threshold => ?, match_count => ?, podcast_id => ?)`

func (r *VectorRetriever) Retrieve(ctx context.Context, podcastID, query string) ([]Chunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	err = r.db.WithContext(ctx).
		Raw(matchDocumentsSQL, vectorLiteral(vec), r.threshold, r.count, podcastID).
		Scan(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w for podcast %s", ErrNoRelevantContent, podcastID)
	}
	return chunks, nil
}

// JoinChunks concatenates passages in retrieval order.
func JoinChunks(chunks []Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n")
}

// vectorLiteral formats v the way pgvector parses text input.
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
