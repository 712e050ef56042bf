package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadContent    = "_content"
	payloadDocumentID = "_document_id"
)

// Qdrant is a Store backed by a Qdrant collection, one point per chunk
// (a UUID chunk id is used directly as the point id; any other id is
// mapped to a derived UUID by stableUUID).
//
// Grounded on internal/persistence/databases/qdrant_vector.go's DSN
// parsing, collection bootstrap, and payload round-tripping.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrant parses dsn (host[:port], optional ?api_key=..., https for TLS)
// and ensures the target collection exists with the given vector
// dimensionality and cosine distance metric.
func NewQdrant(dsn, collection string, dimension int) (*Qdrant, error) {
	if collection == "" {
		return nil, fmt.Errorf("vectorstore: collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vectorstore: dimension must be > 0")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: invalid port in qdrant dsn: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create qdrant client: %w", err)
	}

	q := &Qdrant{client: client, collection: collection, dimension: dimension}
	if err := q.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func (q *Qdrant) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("vectorstore: check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: create collection: %w", err)
	}
	return nil
}

func (q *Qdrant) Add(ctx context.Context, records []Record) error {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		metadataAny := make(map[string]any, len(r.Metadata)+2)
		for k, v := range r.Metadata {
			metadataAny[k] = v
		}
		metadataAny[payloadContent] = r.Content
		metadataAny[payloadDocumentID] = r.DocumentID

		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(stableUUID(r.ChunkID)),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(metadataAny),
		})
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: q.collection, Points: points})
	return err
}

func (q *Qdrant) Delete(ctx context.Context, chunkIDs []string) error {
	ids := make([]*qdrant.PointId, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		ids = append(ids, qdrant.NewIDUUID(stableUUID(id)))
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(ids...),
	})
	return err
}

// Clear drops and recreates the collection, discarding every point.
func (q *Qdrant) Clear(ctx context.Context) error {
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("vectorstore: delete collection: %w", err)
	}
	return q.ensureCollection(ctx)
}

func (q *Qdrant) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Result, error) {
	if topK <= 0 {
		topK = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	limit := uint64(topK)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(hits))
	for _, hit := range hits {
		metadata := make(map[string]any)
		var content, docID string
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				switch k {
				case payloadContent:
					content = v.GetStringValue()
				case payloadDocumentID:
					docID = v.GetStringValue()
				default:
					metadata[k] = v.GetStringValue()
				}
			}
		}
		if filter != nil && !filter(metadata) {
			continue
		}
		id := hit.Id.GetUuid()
		// Cosine collections report score as similarity; convert to the
		// Store interface's distance convention.
		distance := 1 - float64(hit.Score)
		out = append(out, Result{ChunkID: id, DocumentID: docID, Content: content, Metadata: metadata, Distance: distance})
	}
	return out, nil
}

func (q *Qdrant) Close() error { return q.client.Close() }

// stableUUID maps an arbitrary chunk id to a deterministic UUID, since
// Qdrant point ids must be UUIDs or unsigned integers.
func stableUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}
