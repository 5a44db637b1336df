package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/flowengine/database"
	"github.com/kbukum/flowengine/nodes"
)

// KnowledgeRepository is a keyword search over stored documents. It
// implements nodes.KnowledgeSearcher.
type KnowledgeRepository struct {
	db *database.DB
}

var _ nodes.KnowledgeSearcher = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository creates a KnowledgeRepository.
func NewKnowledgeRepository(db *database.DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// AddDocument stores a document in userID's collection and returns its id.
func (r *KnowledgeRepository) AddDocument(ctx context.Context, userID, collection, title, content string) (string, error) {
	m := &KnowledgeDocumentModel{
		ID:         uuid.NewString(),
		UserID:     userID,
		Collection: collection,
		Title:      title,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return "", database.FromDatabase(err, "document")
	}
	return m.ID, nil
}

// Search returns userID's documents that contain any query term, best
// first. Score is the fraction of terms a document contains. An empty
// collection searches all of the user's documents.
func (r *KnowledgeRepository) Search(ctx context.Context, userID, collection, q string, limit int) ([]nodes.Document, error) {
	terms := searchTerms(q)
	if len(terms) == 0 {
		return nil, nil
	}

	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if collection != "" {
		db = db.Where("collection = ?", collection)
	}
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)*2)
	for _, t := range terms {
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(content) LIKE ?)")
		args = append(args, "%"+t+"%", "%"+t+"%")
	}
	var rows []KnowledgeDocumentModel
	if err := db.Where(strings.Join(conds, " OR "), args...).Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "document")
	}

	docs := make([]nodes.Document, 0, len(rows))
	for _, m := range rows {
		text := strings.ToLower(m.Title + " " + m.Content)
		hits := 0
		for _, t := range terms {
			if strings.Contains(text, t) {
				hits++
			}
		}
		docs = append(docs, nodes.Document{
			ID:      m.ID,
			Title:   m.Title,
			Content: m.Content,
			Score:   float64(hits) / float64(len(terms)),
		})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].Title < docs[j].Title
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// searchTerms lowercases q and drops duplicates and words under three letters.
func searchTerms(q string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		if len([]rune(w)) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}
