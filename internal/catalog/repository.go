package catalog

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// Store is the vector-index boundary the catalog depends on. It is
// consumed, not implemented: search, retrieve and scroll over stored
// points with payloads.
type Store interface {
	// Search runs a nearest-neighbor query and returns scored points
	Search(ctx context.Context, vector []float32, filter Filter, limit uint64) ([]Point, error)
	// Retrieve fetches a single point; (nil, nil) when absent
	Retrieve(ctx context.Context, id uint64, withVector bool) (*Point, error)
	// Scroll pages through plain points; the second return is the next
	// page's offset watermark, nil at the end of the collection
	Scroll(ctx context.Context, offset *uint64, limit uint32, filter Filter) ([]Point, *uint64, error)
}

// QdrantStore implements Store against a qdrant collection over gRPC
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	logger     logging.Logger
}

// QdrantConfig holds connection parameters for the vector index
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// NewQdrantStore connects to qdrant and wraps the given collection
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vector index: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		logger: logging.WithFields(logging.Fields{
			"component":  "qdrant_store",
			"collection": cfg.Collection,
		}),
	}, nil
}

// Close tears down the gRPC connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Search implements Store
func (s *QdrantStore) Search(ctx context.Context, vector []float32, filter Filter, limit uint64) ([]Point, error) {
	scored, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vector),
		Filter:         filter.qdrantFilter(),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	points := make([]Point, 0, len(scored))
	for _, sp := range scored {
		points = append(points, Point{
			Kind:    PointScored,
			ID:      sp.GetId().GetNum(),
			Score:   float64(sp.GetScore()),
			Payload: payloadToMap(sp.GetPayload()),
		})
	}
	return points, nil
}

// Retrieve implements Store. The index cannot hold duplicate ids, so the
// result is at most one point.
func (s *QdrantStore) Retrieve(ctx context.Context, id uint64, withVector bool) (*Point, error) {
	retrieved, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVector),
	})
	if err != nil {
		return nil, fmt.Errorf("vector index retrieve failed: %w", err)
	}
	if len(retrieved) == 0 {
		return nil, nil
	}
	if len(retrieved) > 1 {
		return nil, fmt.Errorf("vector index returned %d points for id %d", len(retrieved), id)
	}

	rp := retrieved[0]
	point := &Point{
		Kind:    PointPlain,
		ID:      rp.GetId().GetNum(),
		Payload: payloadToMap(rp.GetPayload()),
	}
	if withVector {
		point.Vector = rp.GetVectors().GetVector().GetData()
	}
	return point, nil
}

// Scroll implements Store
func (s *QdrantStore) Scroll(ctx context.Context, offset *uint64, limit uint32, filter Filter) ([]Point, *uint64, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          qdrant.PtrOf(limit),
		Filter:         filter.qdrantFilter(),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	}
	if offset != nil {
		req.Offset = qdrant.NewIDNum(*offset)
	}

	// The raw points client exposes the next-page watermark the
	// convenience wrapper drops.
	resp, err := s.client.GetPointsClient().Scroll(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("vector index scroll failed: %w", err)
	}

	points := make([]Point, 0, len(resp.GetResult()))
	for _, rp := range resp.GetResult() {
		points = append(points, Point{
			Kind:    PointPlain,
			ID:      rp.GetId().GetNum(),
			Payload: payloadToMap(rp.GetPayload()),
		})
	}

	var next *uint64
	if resp.GetNextPageOffset() != nil {
		next = qdrant.PtrOf(resp.GetNextPageOffset().GetNum())
	}
	return points, next, nil
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = kind.BoolValue
		default:
			out[k] = v.String()
		}
	}
	return out
}

// Catalog is the track-catalog service over a vector store
type Catalog struct {
	store  Store
	logger logging.Logger
}

// NewCatalog creates a catalog service
func NewCatalog(store Store) *Catalog {
	return &Catalog{
		store: store,
		logger: logging.WithFields(logging.Fields{
			"component": "catalog",
		}),
	}
}

// GetTracks returns one page of tracks matching the filter plus the next
// page's offset watermark (nil when exhausted).
func (c *Catalog) GetTracks(ctx context.Context, offset *uint64, limit uint32, filter Filter) ([]Track, *uint64, error) {
	points, next, err := c.store.Scroll(ctx, offset, limit, filter)
	if err != nil {
		return nil, nil, err
	}

	tracks := make([]Track, 0, len(points))
	for i := range points {
		track, err := points[i].Track()
		if err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, next, nil
}

// GetTrackByID fetches one track's metadata. Absence is the recoverable
// ErrTrackNotFound, not a fault.
func (c *Catalog) GetTrackByID(ctx context.Context, id uint64) (*Track, error) {
	point, err := c.store.Retrieve(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if point == nil {
		return nil, ErrTrackNotFound
	}
	track, err := point.Track()
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// MostSimilarByID looks up a stored track's embedding and returns its
// nearest neighbors. The query track itself ranks first in the results.
func (c *Catalog) MostSimilarByID(ctx context.Context, id uint64, limit uint64, filter Filter) ([]ScoredTrack, error) {
	query, err := c.store.Retrieve(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if query == nil {
		return nil, ErrTrackNotFound
	}
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("track %d has no stored embedding", id)
	}

	return c.MostSimilarByVector(ctx, query.Vector, limit, filter)
}

// MostSimilarByVector runs a nearest-neighbor search with an arbitrary
// query embedding, e.g. a freshly extracted upload.
func (c *Catalog) MostSimilarByVector(ctx context.Context, vector []float32, limit uint64, filter Filter) ([]ScoredTrack, error) {
	points, err := c.store.Search(ctx, vector, filter, limit)
	if err != nil {
		return nil, err
	}

	tracks := make([]ScoredTrack, 0, len(points))
	for i := range points {
		scored, err := points[i].ScoredTrack()
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, scored)
	}
	return tracks, nil
}
