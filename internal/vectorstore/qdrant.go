package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"vaultindex/internal/contextutil"
)

const (
	payloadID           = "_id"
	payloadMetadataJSON = "metadata_json"
	payloadFolded       = "_metadata_folded"
)

// QdrantStore implements EmbeddingStore using Qdrant collections, one per table.
type QdrantStore struct {
	client      *qdrant.Client
	dim         int
	params      IndexParams
	efConstruct int
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr string, dim int, params IndexParams, efConstruct int) (*QdrantStore, error) {
	host, port, err := qdrantAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:      client,
		dim:         dim,
		params:      params,
		efConstruct: efConstruct,
	}, nil
}

// qdrantAddress derives the gRPC host and port from the HTTP URL.
func qdrantAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// pointID maps an embedding id to a Qdrant point id. Qdrant only accepts UUIDs and
// integers, so other ids are hashed; the original id travels in the payload.
func pointID(id string) *qdrant.PointId {
	if u, err := uuid.Parse(id); err == nil {
		return qdrant.NewID(u.String())
	}
	return qdrant.NewID(uuid.NewSHA1(embeddingNamespace, []byte(id)).String())
}

func (s *QdrantStore) CreateTable(ctx context.Context, name string) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		size, err := s.collectionVectorSize(ctx, name)
		if err != nil {
			return err
		}
		if size != s.dim {
			return &DimensionMismatchError{ID: name, Expected: s.dim, Actual: size}
		}
		return nil
	}

	logger.InfoContext(ctx, "creating collection", "collection", name, "vector_size", s.dim)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
		HnswConfig: &qdrant.HnswConfigDiff{
			EfConstruct: qdrant.PtrOf(uint64(s.efConstruct)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (s *QdrantStore) TableExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

func (s *QdrantStore) requireTable(ctx context.Context, name string) error {
	exists, err := s.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return nil
}

func (s *QdrantStore) DropTable(ctx context.Context, name string) error {
	if err := s.requireTable(ctx, name); err != nil {
		return err
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func (s *QdrantStore) AddEmbeddings(ctx context.Context, name string, embeddings []DocumentEmbedding) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := checkBatch(s.dim, embeddings); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return nil
	}
	if err := s.requireTable(ctx, name); err != nil {
		return err
	}

	embeddings = lastByID(embeddings)
	points := make([]*qdrant.PointStruct, 0, len(embeddings))
	for _, e := range embeddings {
		payload, err := qdrant.TryValueMap(embeddingPayload(e))
		if err != nil {
			return fmt.Errorf("%w: payload for %s: %v", ErrConversion, e.ID, err)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(e.ID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", name, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func embeddingPayload(e DocumentEmbedding) map[string]any {
	payload := make(map[string]any, len(e.Metadata)+2)
	for k, v := range e.Metadata {
		payload[k] = v
	}
	payload[payloadID] = e.ID
	payload[payloadMetadataJSON] = metadataJSON(e.Metadata)
	payload[payloadFolded] = strings.ToLower(metadataJSON(e.Metadata))
	return payload
}

func (s *QdrantStore) DeleteEmbeddings(ctx context.Context, name string, ids []string) error {
	if err := s.requireTable(ctx, name); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, pointID(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// qdrantFilter translates the portable filter subset into Qdrant conditions.
func qdrantFilter(expr string) (*qdrant.Filter, error) {
	f, err := ParseFilter(expr)
	if err != nil {
		return nil, err
	}
	if len(f.Conditions) == 0 {
		return nil, nil
	}
	must := make([]*qdrant.Condition, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		field := c.Field
		if field == "id" {
			field = payloadID
		}
		if c.Contains {
			// MatchText without a text index is a case-sensitive substring test.
			must = append(must, qdrant.NewMatchText(payloadFolded, strings.ToLower(c.Value)))
		} else {
			must = append(must, qdrant.NewMatch(field, c.Value))
		}
	}
	return &qdrant.Filter{Must: must}, nil
}

func (s *QdrantStore) SimilaritySearch(ctx context.Context, name string, query []float32, limit int, filter string) ([]ScoredEmbedding, error) {
	if err := checkQuery(s.dim, query); err != nil {
		return nil, err
	}
	qf, err := qdrantFilter(filter)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	info, err := s.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	ef := uint64(s.params.Probes(s.params.Partitions(info.PointsCount)))
	queryReq := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		Filter:         qf,
		Params:         &qdrant.SearchParams{HnswEf: qdrant.PtrOf(max(ef, uint64(limit)))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]ScoredEmbedding, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		e, err := embeddingFromPayload(convertPayloadToMap(point.Payload))
		if err != nil {
			return nil, err
		}
		if v := point.GetVectors().GetVector(); v != nil {
			e.Vector = append([]float32(nil), v.GetData()...)
		}
		results = append(results, ScoredEmbedding{Embedding: e, Score: point.Score})
	}
	return results, nil
}

func embeddingFromPayload(payload map[string]any) (DocumentEmbedding, error) {
	id, ok := payload[payloadID].(string)
	if !ok || id == "" {
		return DocumentEmbedding{}, fmt.Errorf("%w: point payload has no %s", ErrConversion, payloadID)
	}
	if raw, ok := payload[payloadMetadataJSON].(string); ok {
		meta, err := decodeMetadata(raw)
		if err != nil {
			return DocumentEmbedding{}, err
		}
		return DocumentEmbedding{ID: id, Metadata: meta}, nil
	}

	meta := make(map[string]string, len(payload))
	for k, v := range payload {
		if k == payloadID || k == payloadFolded {
			continue
		}
		meta[k] = fmt.Sprint(v)
	}
	return DocumentEmbedding{ID: id, Metadata: meta}, nil
}

// Optimize reapplies the HNSW build parameters, which makes Qdrant rebuild the index.
func (s *QdrantStore) Optimize(ctx context.Context, name string) error {
	if err := s.requireTable(ctx, name); err != nil {
		return err
	}
	err := s.client.UpdateCollection(ctx, &qdrant.UpdateCollection{
		CollectionName: name,
		HnswConfig: &qdrant.HnswConfigDiff{
			EfConstruct: qdrant.PtrOf(uint64(s.efConstruct)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
	}
	return nil
}

func (s *QdrantStore) Metric() Metric { return CosineSimilarity }

func (s *QdrantStore) Dimension() int { return s.dim }

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) collectionVectorSize(ctx context.Context, name string) (int, error) {
	info, err := s.GetCollectionInfo(ctx, name)
	if err != nil {
		return 0, err
	}
	if info.VectorSize == 0 {
		return 0, fmt.Errorf("could not determine collection vector size")
	}
	return info.VectorSize, nil
}

// GetCollectionInfo returns information about a collection including point count.
func (s *QdrantStore) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	var vectorSize int
	if config := info.Config; config != nil && config.Params != nil {
		if vectorsConfig := config.Params.GetVectorsConfig(); vectorsConfig != nil {
			if params := vectorsConfig.GetParams(); params != nil {
				vectorSize = int(params.Size)
			}
		}
	}

	var pointsCount int
	if info.PointsCount != nil {
		pointsCount = int(*info.PointsCount)
	}

	status := "unknown"
	if info.Status != 0 {
		status = info.Status.String()
	}

	return &CollectionInfo{
		VectorSize:  vectorSize,
		PointsCount: pointsCount,
		Status:      status,
	}, nil
}

// CollectionInfo contains information about a Qdrant collection.
type CollectionInfo struct {
	VectorSize  int
	PointsCount int
	Status      string
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
