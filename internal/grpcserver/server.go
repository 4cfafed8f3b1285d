package grpcserver

import (
	"context"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"moviehub/internal/movies"
	"moviehub/pkg/models"
)

// Catalog is the read side of the movie store the service needs.
type Catalog interface {
	List(ctx context.Context, q movies.ListQuery) ([]models.Movie, int, error)
	GetByID(ctx context.Context, id string) (*models.Movie, error)
}

type Server struct {
	Movies Catalog
}

func NewServer(catalog Catalog) *Server {
	return &Server{Movies: catalog}
}

func (s *Server) ListMovies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	f := req.GetFields()
	q := movies.ListQuery{
		Search: f["search"].GetStringValue(),
		Genre:  f["genre"].GetStringValue(),
		Year:   int(f["year"].GetNumberValue()),
		Page:   int(f["page"].GetNumberValue()),
		Limit:  int(f["limit"].GetNumberValue()),
	}.Normalize()

	items, total, err := s.Movies.List(ctx, q)
	if err != nil {
		log.WithError(err).WithField("component", "grpc").Error("list movies failed")
		return nil, status.Error(codes.Internal, "list failed")
	}

	list := make([]any, 0, len(items))
	for _, m := range items {
		list = append(list, movieMap(m))
	}
	return toStruct(map[string]any{
		"movies":      list,
		"total":       total,
		"currentPage": q.Page,
		"totalPages":  int(math.Ceil(float64(total) / float64(q.Limit))),
	})
}

func (s *Server) GetMovie(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return toStruct(movieMap(*m))
}

func (s *Server) GetMovieRating(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{
		"movieId":       m.ID,
		"averageRating": m.AverageRating,
		"reviewCount":   m.ReviewCount,
	})
}

func (s *Server) load(ctx context.Context, req *structpb.Struct) (*models.Movie, error) {
	id := strings.TrimSpace(req.GetFields()["id"].GetStringValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	m, err := s.Movies.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).WithField("component", "grpc").Error("get movie failed")
		return nil, status.Error(codes.Internal, "get failed")
	}
	if m == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return m, nil
}

func movieMap(m models.Movie) map[string]any {
	return map[string]any{
		"id":            m.ID,
		"title":         m.Title,
		"genre":         anyList(m.Genre),
		"releaseYear":   m.ReleaseYear,
		"director":      m.Director,
		"cast":          anyList(m.Cast),
		"synopsis":      m.Synopsis,
		"posterUrl":     m.PosterURL,
		"trailerUrl":    m.TrailerURL,
		"averageRating": m.AverageRating,
		"reviewCount":   m.ReviewCount,
		"imdbID":        m.ImdbID,
		"createdAt":     m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func anyList(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode failed")
	}
	return st, nil
}
