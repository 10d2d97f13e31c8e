package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// emailMapping mirrors the index mapping the original deployment used:
// keyword fields for exact category/sender filtering, text for search.
const emailMapping = `{
	"mappings": {
		"properties": {
			"subject":        { "type": "text" },
			"sender":         { "type": "keyword" },
			"body":           { "type": "text" },
			"category":       { "type": "keyword" },
			"category_lower": { "type": "keyword" },
			"received_at":    { "type": "date" }
		}
	}
}`

// emailDocument is the wire shape of a record in the index. The
// category_lower field is always written from the derived form.
type emailDocument struct {
	Subject       string    `json:"subject"`
	Sender        string    `json:"sender"`
	Body          string    `json:"body"`
	Category      string    `json:"category"`
	CategoryLower string    `json:"category_lower"`
	ReceivedAt    time.Time `json:"received_at"`
}

// ElasticStore is an Elasticsearch implementation of the EmailStore
// interface.
type ElasticStore struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// NewElasticStore creates a new Elasticsearch store
func NewElasticStore(addresses []string, username, password, index string, logger *zap.Logger) (*ElasticStore, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &ElasticStore{
		client: client,
		index:  index,
		logger: logger,
	}, nil
}

// EnsureSchema creates the index with its mapping when missing. Safe
// to call when the index already exists.
func (s *ElasticStore) EnsureSchema(ctx context.Context) error {
	res, err := s.client.Indices.Exists(
		[]string{s.index},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		s.logger.Debug("Elasticsearch index already exists", zap.String("index", s.index))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status checking index %s: %s", s.index, res.Status())
	}

	createRes, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(emailMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", s.index, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("failed to create index %s: %s", s.index, createRes.Status())
	}

	s.logger.Info("Created Elasticsearch index", zap.String("index", s.index))
	return nil
}

// Upsert indexes the record under its ID, fully replacing any
// existing document with that ID.
func (s *ElasticStore) Upsert(ctx context.Context, record *core.ClassifiedRecord) error {
	doc := emailDocument{
		Subject:       record.Subject,
		Sender:        record.Sender,
		Body:          record.Body,
		Category:      string(record.Category),
		CategoryLower: record.CategoryNormalized(),
		ReceivedAt:    record.ReceivedAt,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal email document: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(record.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index email %s: %w", record.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to index email %s: %s", record.ID, res.Status())
	}
	return nil
}

// SearchByCategory returns records matching the normalized category,
// most recent first. An empty category matches all records.
func (s *ElasticStore) SearchByCategory(ctx context.Context, categoryNormalized string, limit int) ([]*core.ClassifiedRecord, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var query map[string]interface{}
	if categoryNormalized == "" {
		query = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		query = map[string]interface{}{
			"term": map[string]interface{}{
				"category_lower": categoryNormalized,
			},
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"size": limit,
		"sort": []map[string]interface{}{
			{"received_at": map[string]interface{}{"order": "desc"}},
		},
		"query": query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("failed to search emails: %s", res.Status())
	}

	var sr struct {
		Hits struct {
			Hits []struct {
				ID     string        `json:"_id"`
				Source emailDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]*core.ClassifiedRecord, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		results = append(results, &core.ClassifiedRecord{
			ID:         hit.ID,
			Subject:    hit.Source.Subject,
			Sender:     hit.Source.Sender,
			Body:       hit.Source.Body,
			Category:   core.Category(hit.Source.Category),
			ReceivedAt: hit.Source.ReceivedAt,
		})
	}
	return results, nil
}

// Refresh makes recent writes visible to subsequent searches
func (s *ElasticStore) Refresh(ctx context.Context) error {
	res, err := s.client.Indices.Refresh(
		s.client.Indices.Refresh.WithContext(ctx),
		s.client.Indices.Refresh.WithIndex(s.index),
	)
	if err != nil {
		return fmt.Errorf("failed to refresh index %s: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to refresh index %s: %s", s.index, res.Status())
	}
	return nil
}
