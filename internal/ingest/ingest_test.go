package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/ledger"
	"github.com/tasteapp/taste-index/internal/store"
	"github.com/tasteapp/taste-index/internal/store/storetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(n int) *int { return &n }

func mintFact(id domain.EventID, creator, postID, contentRef string, at time.Time) domain.Fact {
	return domain.NewMintedFact(id, at, domain.PostMinted{
		Creator:    creator,
		PostID:     postID,
		ContentRef: contentRef,
		Caption:    "  Sunday ragu  ",
		Category:   "COOK",
		Rating:     intPtr(5),
		Reward:     domain.NewAmount(0),
	})
}

func likeFact(id domain.EventID, postID, liker, creator string, at time.Time, reward uint64) domain.Fact {
	return domain.NewLikedFact(id, at, domain.PostLiked{
		PostID:  postID,
		Liker:   liker,
		Creator: creator,
		Reward:  domain.NewAmount(reward),
	})
}

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sliceFeed delivers a fixed list of facts, then reports ErrClosed.
type sliceFeed struct {
	mu    sync.Mutex
	facts []domain.Fact
	pos   int
	acked []domain.EventID
}

func (f *sliceFeed) Next(ctx context.Context) (ledger.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Delivery{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.facts) {
		return ledger.Delivery{}, ledger.ErrClosed
	}
	fact := f.facts[f.pos]
	f.pos++
	return ledger.Delivery{Fact: fact, Ack: func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.acked = append(f.acked, fact.ID)
		return nil
	}}, nil
}

func (f *sliceFeed) Close() error { return nil }

// flakyWriter fails with StoreUnavailable a fixed number of times.
type flakyWriter struct {
	failures int
	calls    int
	err      error
}

func (w *flakyWriter) Apply(context.Context, domain.Mutation) (domain.ApplyResult, error) {
	w.calls++
	if w.err != nil {
		return 0, w.err
	}
	if w.calls <= w.failures {
		return 0, domainerrors.StoreUnavailable(errors.New("badger closed"))
	}
	return domain.Applied, nil
}

type recordingCheckpoints struct {
	ids []domain.EventID
}

func (c *recordingCheckpoints) SetCheckpoint(_ context.Context, name string, id domain.EventID) error {
	if name == CheckpointName {
		c.ids = append(c.ids, id)
	}
	return nil
}

func TestToMutation_Mint(t *testing.T) {
	ing := New(nil, DefaultOptions(), nil, discardLogger())
	creator := "0xAAAA" + strings.Repeat("a", 36)

	m, err := ing.ToMutation(mintFact(storetest.EventID(1, 0), creator, "1", "IPFS:bafyabc", storetest.Base))
	require.NoError(t, err)

	assert.Equal(t, domain.FactPostMinted, m.Kind)
	require.NotNil(t, m.Post)
	assert.Equal(t, strings.ToLower(creator), m.Post.Creator)
	assert.Equal(t, "ipfs://bafyabc", m.Post.ContentRef)
	assert.Equal(t, "Sunday ragu", m.Post.Caption)
	assert.Equal(t, domain.CategoryCook, m.Post.Category)
	assert.Equal(t, storetest.EventID(1, 0), m.Post.EventID)
	assert.Equal(t, storetest.Base, m.Post.CreatedAt)
	assert.Equal(t, storetest.Base, m.At)
}

func TestToMutation_CaptionIsNFC(t *testing.T) {
	ing := New(nil, DefaultOptions(), nil, discardLogger())
	f := mintFact(storetest.EventID(1, 0), storetest.Addr(1), "1", "ipfs://bafy", storetest.Base)
	f.Minted.Caption = "Cafe\u0301"

	m, err := ing.ToMutation(f)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", m.Post.Caption)
}

func TestToMutation_Rejections(t *testing.T) {
	ing := New(nil, DefaultOptions(), nil, discardLogger())
	base := func() domain.Fact {
		return mintFact(storetest.EventID(1, 0), storetest.Addr(1), "1", "ipfs://bafy", storetest.Base)
	}

	tests := []struct {
		name   string
		mutate func(f *domain.Fact)
		code   domainerrors.Code
	}{
		{"wrong scheme", func(f *domain.Fact) { f.Minted.ContentRef = "https://example.com/x" }, domainerrors.CodeInvalidReference},
		{"missing scheme", func(f *domain.Fact) { f.Minted.ContentRef = "bafy" }, domainerrors.CodeInvalidReference},
		{"empty content ref", func(f *domain.Fact) { f.Minted.ContentRef = "" }, domainerrors.CodeInvalidReference},
		{"bad image ref", func(f *domain.Fact) { f.Minted.ImageRef = "ipfs://" }, domainerrors.CodeInvalidReference},
		{"bad creator", func(f *domain.Fact) { f.Minted.Creator = "alice" }, domainerrors.CodeValidation},
		{"bad category", func(f *domain.Fact) { f.Minted.Category = "bake" }, domainerrors.CodeValidation},
		{"rating out of range", func(f *domain.Fact) { f.Minted.Rating = intPtr(6) }, domainerrors.CodeValidation},
		{"non numeric post id", func(f *domain.Fact) { f.Minted.PostID = "abc" }, domainerrors.CodeValidation},
		{"negative post id", func(f *domain.Fact) { f.Minted.PostID = "-1" }, domainerrors.CodeValidation},
		{"fractional post id", func(f *domain.Fact) { f.Minted.PostID = "1.5" }, domainerrors.CodeValidation},
		{"post id beyond uint256", func(f *domain.Fact) { f.Minted.PostID = "1" + strings.Repeat("0", 78) }, domainerrors.CodeValidation},
		{"caption too long", func(f *domain.Fact) { f.Minted.Caption = strings.Repeat("é", domain.MaxCaptionLength+1) }, domainerrors.CodeValidation},
		{"no timestamp", func(f *domain.Fact) { f.Timestamp = time.Time{} }, domainerrors.CodeValidation},
		{"timestamp before epoch", func(f *domain.Fact) {
			f.Timestamp = time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC)
		}, domainerrors.CodeValidation},
		{"timestamp past 2262", func(f *domain.Fact) { f.Timestamp = domain.MaxFactTime.Add(time.Second) }, domainerrors.CodeValidation},
		{"bad event id", func(f *domain.Fact) { f.ID = domain.EventID{} }, domainerrors.CodeValidation},
		{"missing payload", func(f *domain.Fact) { f.Minted = nil }, domainerrors.CodeValidation},
		{"unknown kind", func(f *domain.Fact) { f.Kind = "PostBurned" }, domainerrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base()
			tt.mutate(&f)
			_, err := ing.ToMutation(f)
			require.Error(t, err)
			assert.Equal(t, tt.code, domainerrors.CodeOf(err))
		})
	}
}

func TestToMutation_CaptionAtLimit(t *testing.T) {
	ing := New(nil, DefaultOptions(), nil, discardLogger())
	f := mintFact(storetest.EventID(1, 0), storetest.Addr(1), "1", "ipfs://bafy", storetest.Base)
	f.Minted.Caption = strings.Repeat("é", domain.MaxCaptionLength)

	_, err := ing.ToMutation(f)
	assert.NoError(t, err)
}

func TestToMutation_Like(t *testing.T) {
	ing := New(nil, DefaultOptions(), nil, discardLogger())
	liker := "0x" + strings.Repeat("B", 40)

	m, err := ing.ToMutation(likeFact(storetest.EventID(2, 3), "1", liker, storetest.Addr(1), storetest.Base, 7))
	require.NoError(t, err)

	require.NotNil(t, m.Like)
	assert.Equal(t, "0x"+strings.Repeat("b", 40), m.Like.Liker)
	assert.Equal(t, storetest.Addr(1), m.Like.Creator)
	assert.Equal(t, "7", m.Reward.String())
	assert.Equal(t, "7", m.Like.Reward.String())
}

func TestToMutation_TimestampBounds(t *testing.T) {
	ing := New(nil, DefaultOptions(), nil, discardLogger())

	for _, at := range []time.Time{domain.MinFactTime, domain.MaxFactTime} {
		_, err := ing.ToMutation(mintFact(storetest.EventID(1, 0), storetest.Addr(1), "1", "ipfs://bafy", at))
		assert.NoError(t, err, "at %s", at)
	}
}

func TestIngest_PostIDCanonicalForm(t *testing.T) {
	s := setupStore(t)
	ing := New(s, DefaultOptions(), nil, discardLogger())
	ctx := context.Background()
	creator, liker := storetest.Addr(0xA), storetest.Addr(0xB)

	result, err := ing.Ingest(ctx, mintFact(storetest.EventID(1, 0), creator, "007", "ipfs://bafy", storetest.Base))
	require.NoError(t, err)
	assert.Equal(t, domain.Applied, result)

	// The same token under its plain spelling is the same post.
	result, err = ing.Ingest(ctx, mintFact(storetest.EventID(2, 0), creator, "7", "ipfs://bafy", storetest.Base))
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyApplied, result)

	result, err = ing.Ingest(ctx, likeFact(storetest.EventID(3, 0), "7", liker, creator, storetest.Base.Add(time.Minute), 1))
	require.NoError(t, err)
	assert.Equal(t, domain.Applied, result)

	post, err := s.GetPost(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.LikeCount)

	_, err = s.GetPost(ctx, "007")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	acct, err := s.GetAccount(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acct.PostCount)
}

func TestIngest_Scenario(t *testing.T) {
	s := setupStore(t)
	opts := DefaultOptions()
	opts.ContentScheme = "cid"
	ing := New(s, opts, nil, discardLogger())
	ctx := context.Background()

	creator, liker := storetest.Addr(0xA), storetest.Addr(0xB)

	result, err := ing.Ingest(ctx, mintFact(storetest.EventID(1, 0), creator, "1", "cid:abc", storetest.Base))
	require.NoError(t, err)
	assert.Equal(t, domain.Applied, result)

	like := likeFact(storetest.EventID(2, 0), "1", liker, creator, storetest.Base.Add(time.Minute), 1)
	result, err = ing.Ingest(ctx, like)
	require.NoError(t, err)
	assert.Equal(t, domain.Applied, result)

	result, err = ing.Ingest(ctx, like)
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyApplied, result)

	post, err := s.GetPost(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.LikeCount)
	assert.Equal(t, "cid://abc", post.ContentRef)

	acct, err := s.GetAccount(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, "1", acct.TotalEarned.String())
}

func TestIngest_SelfLikeRejected(t *testing.T) {
	s := setupStore(t)
	ing := New(s, DefaultOptions(), nil, discardLogger())
	ctx := context.Background()
	creator := storetest.Addr(1)

	_, err := ing.Ingest(ctx, mintFact(storetest.EventID(1, 0), creator, "1", "ipfs://bafy", storetest.Base))
	require.NoError(t, err)

	_, err = ing.Ingest(ctx, likeFact(storetest.EventID(2, 0), "1", "0x"+strings.ToUpper(creator[2:]), creator, storetest.Base, 1))
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeInvalidLike, domainerrors.CodeOf(err))

	n, err := s.CountLikes(ctx, "1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_AcksAppliedAndRejected(t *testing.T) {
	s := setupStore(t)
	checkpoints := &recordingCheckpoints{}
	opts := DefaultOptions()
	opts.Checkpoints = checkpoints
	ing := New(s, opts, nil, discardLogger())

	creator, liker := storetest.Addr(1), storetest.Addr(2)
	feed := &sliceFeed{facts: []domain.Fact{
		mintFact(storetest.EventID(1, 0), creator, "1", "ipfs://bafy", storetest.Base),
		mintFact(storetest.EventID(2, 0), creator, "2", "https://bad", storetest.Base),
		likeFact(storetest.EventID(3, 0), "1", liker, creator, storetest.Base, 1),
		likeFact(storetest.EventID(3, 0), "1", liker, creator, storetest.Base, 1),
	}}

	require.NoError(t, ing.Run(context.Background(), feed))

	assert.Equal(t, []domain.EventID{
		storetest.EventID(1, 0),
		storetest.EventID(2, 0),
		storetest.EventID(3, 0),
		storetest.EventID(3, 0),
	}, feed.acked)
	assert.Equal(t, feed.acked, checkpoints.ids)

	post, err := s.GetPost(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.LikeCount)

	_, err = s.GetPost(context.Background(), "2")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestRun_RetriesUnavailableStore(t *testing.T) {
	w := &flakyWriter{failures: 2}
	opts := DefaultOptions()
	opts.InitialBackoff = time.Millisecond
	opts.MaxBackoff = 5 * time.Millisecond
	ing := New(w, opts, nil, discardLogger())

	feed := &sliceFeed{facts: []domain.Fact{
		mintFact(storetest.EventID(1, 0), storetest.Addr(1), "1", "ipfs://bafy", storetest.Base),
	}}

	require.NoError(t, ing.Run(context.Background(), feed))
	assert.Equal(t, 3, w.calls)
	assert.Equal(t, []domain.EventID{storetest.EventID(1, 0)}, feed.acked)
}

func TestRun_UnavailableUntilCanceledIsNotAcked(t *testing.T) {
	w := &flakyWriter{failures: 1 << 30}
	opts := DefaultOptions()
	opts.InitialBackoff = time.Millisecond
	opts.MaxBackoff = 2 * time.Millisecond
	ing := New(w, opts, nil, discardLogger())

	feed := &sliceFeed{facts: []domain.Fact{
		mintFact(storetest.EventID(1, 0), storetest.Addr(1), "1", "ipfs://bafy", storetest.Base),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, ing.Run(ctx, feed))
	assert.Greater(t, w.calls, 1)
	assert.Empty(t, feed.acked)
}

func TestRun_InternalErrorStops(t *testing.T) {
	w := &flakyWriter{err: domainerrors.Internal("corrupt record")}
	ing := New(w, DefaultOptions(), nil, discardLogger())

	feed := &sliceFeed{facts: []domain.Fact{
		mintFact(storetest.EventID(1, 0), storetest.Addr(1), "1", "ipfs://bafy", storetest.Base),
	}}

	err := ing.Run(context.Background(), feed)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeInternal, domainerrors.CodeOf(err))
	assert.Empty(t, feed.acked)
}

func TestRun_MemoryFeed(t *testing.T) {
	s := setupStore(t)
	ing := New(s, DefaultOptions(), nil, discardLogger())

	l := ledger.NewMemoryLedger()
	feed, err := l.Feed(domain.EventID{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx, feed) }()

	require.NoError(t, l.Append(mintFact(storetest.EventID(1, 0), storetest.Addr(1), "1", "ipfs://bafy", storetest.Base)))

	require.Eventually(t, func() bool {
		ok, err := s.IsProcessed(context.Background(), storetest.EventID(1, 0))
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
