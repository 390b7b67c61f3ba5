package api

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/tasteapp/taste-index/internal/auth"
	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/ingest"
	"github.com/tasteapp/taste-index/internal/ledger"
	"github.com/tasteapp/taste-index/internal/metrics"
	"github.com/tasteapp/taste-index/internal/search"
	"github.com/tasteapp/taste-index/internal/service"
	"github.com/tasteapp/taste-index/internal/store"
	"github.com/tasteapp/taste-index/internal/store/storetest"
)

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api     humatest.TestAPI
	ledger  *ledger.MemoryLedger
	tokens  *auth.TokenService
	token   string
	metrics *metrics.Metrics
}

// testEnvelope decodes the response envelope.
type testEnvelope[T any] struct {
	V       int            `json:"v"`
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeEnvelope[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	require.Equal(t, 1, env.V)
	return env
}

type testServerOption func(*testServerConfig)

type testServerConfig struct {
	opts     Options
	wrap     func(store.Index) store.Index
	noSearch bool
}

func withOptions(opts Options) testServerOption {
	return func(c *testServerConfig) { c.opts = opts }
}

// withIndex wraps the index the writer sees.
func withIndex(wrap func(store.Index) store.Index) testServerOption {
	return func(c *testServerConfig) { c.wrap = wrap }
}

func withoutSearch() testServerOption {
	return func(c *testServerConfig) { c.noSearch = true }
}

// setupTestServer creates a test server over a temp badger index.
func setupTestServer(t *testing.T, options ...testServerOption) *testServer {
	t.Helper()

	var cfg testServerConfig
	for _, o := range options {
		o(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	var writerIndex store.Index = st
	if cfg.wrap != nil {
		writerIndex = cfg.wrap(st)
	}

	m := metrics.New()

	var searchService *service.SearchService
	if !cfg.noSearch {
		idx, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
		require.NoError(t, err)
		t.Cleanup(func() { _ = idx.Close() })
		searchService = service.NewSearchService(idx, st, m, logger)
	}

	writer := service.NewWriterService(writerIndex, searchService, service.DefaultWriterConfig(), m, logger)
	ingestor := ingest.New(writer, ingest.DefaultOptions(), m, logger)
	memLedger := ledger.NewMemoryLedger()

	services := &Services{
		Query:     service.NewQueryService(st, domain.DefaultRecentWindow, logger),
		Profile:   service.NewProfileService(st, "ipfs", service.DefaultWriterConfig(), logger),
		Search:    searchService,
		Facts:     service.NewFactService(ingestor, logger),
		Reconcile: service.NewReconcileService(memLedger, ingestor, st, service.DefaultReconcileConfig(), m, logger),
	}

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)
	token, _, err := tokens.Issue("test-operator")
	require.NoError(t, err)

	s := NewServer(st, services, tokens, m, cfg.opts, logger)
	t.Cleanup(s.Close)

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.api),
		ledger:  memLedger,
		tokens:  tokens,
		token:   token,
		metrics: m,
	}
}

func (ts *testServer) bearer() string {
	return "Authorization: Bearer " + ts.token
}

// submit posts facts through the operator endpoint and requires success.
func (ts *testServer) submit(t *testing.T, facts ...domain.Fact) {
	t.Helper()
	for _, f := range facts {
		resp := ts.api.Post("/api/v1/facts", ts.bearer(), f)
		require.Less(t, resp.Code, 300, "submit %s: %s", f.ID, resp.Body.String())
	}
}

var (
	alice = storetest.Addr(0xa11ce)
	bob   = storetest.Addr(0xb0b)
	carol = storetest.Addr(0xca801)
)

func mintFact(tx int, creator, postID string, category domain.Category, at time.Time, caption string) domain.Fact {
	return domain.NewMintedFact(storetest.EventID(tx, 0), at, domain.PostMinted{
		Creator:    creator,
		PostID:     postID,
		ContentRef: "ipfs://bafy" + postID,
		Caption:    caption,
		Category:   string(category),
		Reward:     domain.NewAmount(0),
	})
}

func likeFact(tx int, postID, liker, creator string, at time.Time, reward uint64) domain.Fact {
	return domain.NewLikedFact(storetest.EventID(tx, 0), at, domain.PostLiked{
		PostID:  postID,
		Liker:   liker,
		Creator: creator,
		Reward:  domain.NewAmount(reward),
	})
}

var errStoreDown = domainerrors.StoreUnavailable(errors.New("connection refused"))

// unavailableIndex fails every write as if the store were down.
type unavailableIndex struct {
	store.Index
}

func (unavailableIndex) Apply(context.Context, domain.Mutation) (domain.ApplyResult, error) {
	return 0, errStoreDown
}
