// Command server is a resolver backend for tests/remote/schema.graphql that
// speaks the graphrt remote protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/hanpama/graphrt/internal/logging"
	"github.com/hanpama/graphrt/internal/remote"
)

type user struct {
	ID   string
	Name string
}

type review struct {
	ID     string
	UserID string
	Body   string
	Stars  int
	Hidden bool
}

type server struct {
	mu      sync.RWMutex
	users   map[string]*user
	reviews map[string]*review
	nextID  int
}

func newServer() *server {
	s := &server{
		users:   make(map[string]*user),
		reviews: make(map[string]*review),
		nextID:  1,
	}
	s.seedData()
	return s
}

func (s *server) seedData() {
	for _, u := range []*user{
		{ID: "user-1", Name: "John Doe"},
		{ID: "user-2", Name: "Jane Smith"},
	} {
		s.users[u.ID] = u
	}
	s.add("user-1", "Solid and fast", 5, false)
	s.add("user-1", "Arrived broken", 1, false)
	s.add("user-2", "Decent value", 3, false)
	s.add("user-2", "Flagged by moderation", 2, true)
}

func (s *server) add(userID, body string, stars int, hidden bool) *review {
	r := &review{ID: "review-" + strconv.Itoa(s.nextID), UserID: userID, Body: body, Stars: stars, Hidden: hidden}
	s.nextID++
	s.reviews[r.ID] = r
	return r
}

func (u *user) value() map[string]any {
	return map[string]any{"id": u.ID, "name": u.Name}
}

func (r *review) value() map[string]any {
	return map[string]any{"id": r.ID, "body": r.Body, "stars": r.Stars, "hidden": r.Hidden}
}

func (s *server) Resolve(ctx context.Context, req *remote.Request) (any, error) {
	switch req.Coordinate {
	case "Query.user", "User":
		s.mu.RLock()
		defer s.mu.RUnlock()
		if u, ok := s.users[idOf(req, "id")]; ok {
			return u.value(), nil
		}
		return nil, nil
	case "Query.review", "Review":
		s.mu.RLock()
		defer s.mu.RUnlock()
		if r, ok := s.reviews[idOf(req, "id")]; ok {
			return r.value(), nil
		}
		return nil, nil
	case "Mutation.addReview":
		return s.addReview(req)
	case "User.reviews":
		return s.userReviews(req), nil
	}
	return nil, &remote.Error{Message: "unknown coordinate " + req.Coordinate}
}

func (s *server) ResolveBatch(ctx context.Context, coordinate string, reqs []*remote.Request) ([]remote.Result, error) {
	out := make([]remote.Result, len(reqs))
	for i, req := range reqs {
		v, err := s.Resolve(ctx, req)
		out[i] = remote.Result{Value: v, Err: err}
	}
	return out, nil
}

func (s *server) Check(ctx context.Context, req *remote.CheckRequest) (remote.Decision, string, error) {
	if req.Coordinate != "Review" {
		return remote.Skip, "", nil
	}
	if hidden, _ := req.Object["hidden"].(bool); hidden {
		return remote.Deny, "review is hidden", nil
	}
	return remote.Allow, "", nil
}

func (s *server) addReview(req *remote.Request) (any, error) {
	stars := int(toFloat(req.Arguments["stars"]))
	if stars < 1 || stars > 5 {
		return nil, &remote.Error{Message: "stars must be between 1 and 5", Extensions: map[string]any{"field": "stars"}}
	}
	userID, _ := req.Arguments["userId"].(string)
	body, _ := req.Arguments["body"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, &remote.Error{Message: fmt.Sprintf("user %s not found", userID)}
	}
	return s.add(userID, body, stars, false).value(), nil
}

func (s *server) userReviews(req *remote.Request) []any {
	userID, _ := req.Object["id"].(string)
	minStars := int(toFloat(req.Arguments["minStars"]))
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*review
	for _, r := range s.reviews {
		if r.UserID == userID && r.Stars >= minStars {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	out := make([]any, len(matched))
	for i, r := range matched {
		out[i] = r.value()
	}
	return out
}

// idOf returns the node ID of a node lookup or the named argument of a
// root field.
func idOf(req *remote.Request, arg string) string {
	if req.ID != "" {
		return req.ID
	}
	id, _ := req.Arguments[arg].(string)
	return id
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func main() {
	addr := flag.String("addr", ":50051", "the address to listen on")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger, err := logging.New(*level, true)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", *addr), zap.Error(err))
	}

	s := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(logger)))
	remote.RegisterServer(s, newServer())

	logger.Info("resolver backend starting", zap.String("addr", *addr))
	if err := s.Serve(lis); err != nil {
		logger.Fatal("failed to serve", zap.Error(err))
	}
}

// loggingInterceptor logs one line per unary RPC with method, duration and
// compact JSON for the request and response.
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("req", toCompactJSON(req)),
		}
		if err != nil {
			st := status.Convert(err)
			logger.Warn("grpc", append(fields, zap.Stringer("code", st.Code()), zap.String("error", st.Message()))...)
			return resp, err
		}
		logger.Debug("grpc", append(fields, zap.String("resp", toCompactJSON(resp)))...)
		return resp, nil
	}
}

// toCompactJSON renders a protobuf message on one line, or its type name
// when it is not one.
func toCompactJSON(msg any) string {
	m, ok := msg.(proto.Message)
	if !ok {
		return fmt.Sprintf("%T", msg)
	}
	b, err := protojson.MarshalOptions{Multiline: false}.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%T", msg)
	}
	return string(b)
}
