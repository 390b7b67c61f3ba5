// Package storetest holds the behavioural suite every store.Index
// implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
	"github.com/tasteapp/taste-index/internal/store"
)

// Factory opens a fresh, empty index for one test. The factory registers its
// own cleanup.
type Factory func(t *testing.T) store.Index

// Run executes the suite against indexes produced by open.
func Run(t *testing.T, open Factory) {
	t.Run("ApplyTwiceIsIdempotent", func(t *testing.T) { testApplyTwice(t, open(t)) })
	t.Run("MintScenario", func(t *testing.T) { testMintScenario(t, open(t)) })
	t.Run("MintRewardCreditsCreator", func(t *testing.T) { testMintReward(t, open(t)) })
	t.Run("DuplicatePostIDUnderNewEvent", func(t *testing.T) { testDuplicatePost(t, open(t)) })
	t.Run("DuplicateLikePairUnderNewEvent", func(t *testing.T) { testDuplicateLikePair(t, open(t)) })
	t.Run("SelfLikeNeverWrites", func(t *testing.T) { testSelfLike(t, open(t)) })
	t.Run("LikeForUnknownPost", func(t *testing.T) { testLikeUnknownPost(t, open(t)) })
	t.Run("LikeWithWrongCreator", func(t *testing.T) { testLikeWrongCreator(t, open(t)) })
	t.Run("LikeCountMatchesLikes", func(t *testing.T) { testLikeCountMatchesLikes(t, open(t)) })
	t.Run("ConcurrentLikesAllCounted", func(t *testing.T) { testConcurrentLikes(t, open(t)) })
	t.Run("FeedOrdering", func(t *testing.T) { testFeedOrdering(t, open(t)) })
	t.Run("TimestampOutsideIndexableRange", func(t *testing.T) { testTimestampRange(t, open(t)) })
	t.Run("FeedPagination", func(t *testing.T) { testFeedPagination(t, open(t)) })
	t.Run("ListByCreator", func(t *testing.T) { testListByCreator(t, open(t)) })
	t.Run("InvalidCursor", func(t *testing.T) { testInvalidCursor(t, open(t)) })
	t.Run("LeaderboardTieBreak", func(t *testing.T) { testLeaderboardTieBreak(t, open(t)) })
	t.Run("LeaderboardRecentWindow", func(t *testing.T) { testLeaderboardRecent(t, open(t)) })
	t.Run("ProfileUpdate", func(t *testing.T) { testProfileUpdate(t, open(t)) })
	t.Run("Checkpoint", func(t *testing.T) { testCheckpoint(t, open(t)) })
	t.Run("AllPostsAndStats", func(t *testing.T) { testAllPostsAndStats(t, open(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, open(t)) })
}

// Addr returns a deterministic normalized address.
func Addr(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

// EventID returns a deterministic event id.
func EventID(tx int, logIndex uint32) domain.EventID {
	return domain.EventID{TxHash: fmt.Sprintf("0x%064x", tx), LogIndex: logIndex}
}

// Base is the reference timestamp used by the suite.
var Base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Mint builds a mint mutation.
func Mint(id domain.EventID, creator, postID string, category domain.Category, at time.Time, reward uint64) domain.Mutation {
	rating := 5
	return domain.Mutation{
		EventID: id,
		Kind:    domain.FactPostMinted,
		At:      at,
		Reward:  domain.NewAmount(reward),
		Post: &domain.Post{
			PostID:     postID,
			Creator:    creator,
			ContentRef: "ipfs://bafy" + postID,
			Caption:    "dish " + postID,
			Category:   category,
			Rating:     &rating,
			CreatedAt:  at,
			EventID:    id,
		},
	}
}

// LikeOf builds a like mutation.
func LikeOf(id domain.EventID, postID, liker, creator string, at time.Time, reward uint64) domain.Mutation {
	return domain.Mutation{
		EventID: id,
		Kind:    domain.FactPostLiked,
		At:      at,
		Reward:  domain.NewAmount(reward),
		Like: &domain.Like{
			PostID:    postID,
			Liker:     liker,
			Creator:   creator,
			Reward:    domain.NewAmount(reward),
			CreatedAt: at,
			EventID:   id,
		},
	}
}

// MustApply applies m, retrying write conflicts, and returns the result.
func MustApply(t *testing.T, idx store.Index, m domain.Mutation) domain.ApplyResult {
	t.Helper()
	res, err := applyWithRetry(context.Background(), idx, m)
	require.NoError(t, err)
	return res
}

func applyWithRetry(ctx context.Context, idx store.Index, m domain.Mutation) (domain.ApplyResult, error) {
	for attempt := 0; ; attempt++ {
		res, err := idx.Apply(ctx, m)
		if err == nil || !domainerrors.Is(err, domainerrors.ErrWriteConflict) || attempt >= 50 {
			return res, err
		}
		time.Sleep(time.Duration(attempt+1) * time.Millisecond)
	}
}

func postIDs(posts []*domain.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.PostID
	}
	return ids
}

func testApplyTwice(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator, liker := Addr(1), Addr(2)

	assert.Equal(t, domain.Applied, MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryCook, Base, 0)))
	like := LikeOf(EventID(2, 0), "1", liker, creator, Base.Add(time.Minute), 1)
	assert.Equal(t, domain.Applied, MustApply(t, idx, like))

	postBefore, err := idx.GetPost(ctx, "1")
	require.NoError(t, err)
	acctBefore, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)
	statsBefore, err := idx.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.AlreadyApplied, MustApply(t, idx, like))
	assert.Equal(t, domain.AlreadyApplied, MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryCook, Base, 0)))

	postAfter, err := idx.GetPost(ctx, "1")
	require.NoError(t, err)
	acctAfter, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)
	statsAfter, err := idx.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, postBefore, postAfter)
	assert.Equal(t, acctBefore.TotalEarned.String(), acctAfter.TotalEarned.String())
	assert.Equal(t, acctBefore.PostCount, acctAfter.PostCount)
	assert.Equal(t, statsBefore, statsAfter)

	processed, err := idx.IsProcessed(ctx, like.EventID)
	require.NoError(t, err)
	assert.True(t, processed)
}

func testMintScenario(t *testing.T, idx store.Index) {
	ctx := context.Background()
	x, y := Addr(10), Addr(11)

	MustApply(t, idx, Mint(EventID(1, 0), x, "1", domain.CategoryCook, Base, 0))

	posts, err := idx.ListPostsByCreator(ctx, x, store.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, posts.Items, 1)
	require.NotNil(t, posts.Items[0].Rating)
	assert.Equal(t, 5, *posts.Items[0].Rating)

	like := LikeOf(EventID(2, 1), "1", y, x, Base.Add(time.Hour), 1)
	assert.Equal(t, domain.Applied, MustApply(t, idx, like))
	assert.Equal(t, domain.AlreadyApplied, MustApply(t, idx, like))

	post, err := idx.GetPost(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.LikeCount)

	creator, err := idx.GetAccount(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, "1", creator.TotalEarned.String())
	assert.Equal(t, int64(1), creator.PostCount)
	assert.True(t, creator.LastActive.Equal(Base))

	liker, err := idx.GetAccount(ctx, y)
	require.NoError(t, err)
	assert.True(t, liker.TotalEarned.IsZero())
	assert.Equal(t, int64(0), liker.PostCount)
	assert.True(t, liker.LastActive.Equal(Base.Add(time.Hour)))
}

func testMintReward(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator := Addr(3)

	MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryTaste, Base, 10))
	MustApply(t, idx, Mint(EventID(2, 0), creator, "2", domain.CategoryTaste, Base.Add(-time.Hour), 10))

	acct, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, "20", acct.TotalEarned.String())
	assert.Equal(t, int64(2), acct.PostCount)
	// An older mint arriving later does not move LastActive backwards.
	assert.True(t, acct.LastActive.Equal(Base))
}

func testDuplicatePost(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator := Addr(4)

	MustApply(t, idx, Mint(EventID(1, 0), creator, "7", domain.CategoryCook, Base, 5))
	dup := Mint(EventID(9, 0), creator, "7", domain.CategoryTaste, Base.Add(time.Hour), 5)
	assert.Equal(t, domain.AlreadyApplied, MustApply(t, idx, dup))

	post, err := idx.GetPost(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryCook, post.Category)
	assert.Equal(t, "ipfs://bafy7", post.ContentRef)

	acct, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acct.PostCount)
	assert.Equal(t, "5", acct.TotalEarned.String())

	taste, err := idx.ListPostsByCategory(ctx, domain.CategoryTaste, store.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, taste.Items)
}

func testDuplicateLikePair(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator, liker := Addr(5), Addr(6)

	MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryCook, Base, 0))
	assert.Equal(t, domain.Applied, MustApply(t, idx, LikeOf(EventID(2, 0), "1", liker, creator, Base, 3)))

	retry := LikeOf(EventID(3, 0), "1", liker, creator, Base.Add(time.Minute), 3)
	assert.Equal(t, domain.AlreadyApplied, MustApply(t, idx, retry))

	processed, err := idx.IsProcessed(ctx, retry.EventID)
	require.NoError(t, err)
	assert.True(t, processed)

	post, err := idx.GetPost(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.LikeCount)

	acct, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, "3", acct.TotalEarned.String())

	like, err := idx.GetLike(ctx, "1", liker)
	require.NoError(t, err)
	assert.Equal(t, EventID(2, 0), like.EventID)
}

func testSelfLike(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator := Addr(7)

	MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryCook, Base, 0))
	before, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)

	self := LikeOf(EventID(2, 0), "1", creator, creator, Base.Add(time.Hour), 9)
	_, err = idx.Apply(ctx, self)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidLike)

	post, err := idx.GetPost(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), post.LikeCount)

	count, err := idx.CountLikes(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	after, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, before.TotalEarned.String(), after.TotalEarned.String())
	assert.True(t, before.LastActive.Equal(after.LastActive))

	processed, err := idx.IsProcessed(ctx, self.EventID)
	require.NoError(t, err)
	assert.False(t, processed)
}

func testLikeUnknownPost(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator, liker := Addr(8), Addr(9)

	like := LikeOf(EventID(2, 0), "1", liker, creator, Base.Add(time.Minute), 1)
	_, err := idx.Apply(ctx, like)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidLike)

	processed, err := idx.IsProcessed(ctx, like.EventID)
	require.NoError(t, err)
	assert.False(t, processed)

	// Once the mint is indexed, a replay of the same like applies.
	MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryCook, Base, 0))
	assert.Equal(t, domain.Applied, MustApply(t, idx, like))

	post, err := idx.GetPost(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.LikeCount)
}

func testLikeWrongCreator(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator, other, liker := Addr(12), Addr(13), Addr(14)

	MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryCook, Base, 0))
	_, err := idx.Apply(ctx, LikeOf(EventID(2, 0), "1", liker, other, Base, 1))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidLike)

	_, err = idx.GetAccount(ctx, other)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func testLikeCountMatchesLikes(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator := Addr(20)

	MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryCook, Base, 0))
	MustApply(t, idx, Mint(EventID(1, 1), creator, "2", domain.CategoryCook, Base, 0))

	for i := range 6 {
		liker := Addr(100 + i%4)
		MustApply(t, idx, LikeOf(EventID(10+i, 0), "1", liker, creator, Base, 1))
		MustApply(t, idx, LikeOf(EventID(10+i, 1), "2", liker, creator, Base, 1))
	}

	for _, postID := range []string{"1", "2"} {
		post, err := idx.GetPost(ctx, postID)
		require.NoError(t, err)
		count, err := idx.CountLikes(ctx, postID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), post.LikeCount)
		assert.Equal(t, count, post.LikeCount)
	}

	acct, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, "8", acct.TotalEarned.String())
}

func testConcurrentLikes(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator := Addr(30)
	const likers = 16

	MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryCook, Base, 0))

	var wg sync.WaitGroup
	errs := make(chan error, likers*2)
	for i := range likers {
		m := LikeOf(EventID(100+i, 0), "1", Addr(1000+i), creator, Base.Add(time.Duration(i)*time.Second), 2)
		// Each like is delivered twice concurrently.
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := applyWithRetry(ctx, idx, m); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	post, err := idx.GetPost(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(likers), post.LikeCount)

	acct, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(likers*2), acct.TotalEarned.String())
}

func testFeedOrdering(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator := Addr(40)

	MustApply(t, idx, Mint(EventID(3, 0), creator, "1", domain.CategoryCook, Base, 0))
	MustApply(t, idx, Mint(EventID(1, 0), creator, "2", domain.CategoryCook, Base.Add(time.Hour), 0))
	// Same timestamp as post 1; lower event id sorts first.
	MustApply(t, idx, Mint(EventID(2, 0), creator, "3", domain.CategoryCook, Base, 0))
	MustApply(t, idx, Mint(EventID(4, 0), creator, "4", domain.CategoryTaste, Base.Add(2*time.Hour), 0))

	cook, err := idx.ListPostsByCategory(ctx, domain.CategoryCook, store.PaginationParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "1"}, postIDs(cook.Items))
	assert.False(t, cook.HasMore)
	assert.Empty(t, cook.NextCursor)

	again, err := idx.ListPostsByCategory(ctx, domain.CategoryCook, store.PaginationParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, postIDs(cook.Items), postIDs(again.Items))

	all, err := idx.ListRecentPosts(ctx, store.PaginationParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "2", "3", "1"}, postIDs(all.Items))
}

func testTimestampRange(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator := Addr(42)

	MustApply(t, idx, Mint(EventID(1, 0), creator, "1", domain.CategoryCook, Base, 0))
	MustApply(t, idx, Mint(EventID(2, 0), creator, "2", domain.CategoryCook, domain.MinFactTime, 0))

	for i, at := range []time.Time{
		domain.MinFactTime.Add(-time.Nanosecond),
		time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC),
		domain.MaxFactTime.Add(time.Nanosecond),
	} {
		postID := fmt.Sprintf("%d", 10+i)
		_, err := idx.Apply(ctx, Mint(EventID(10+i, 0), creator, postID, domain.CategoryCook, at, 0))
		assert.ErrorIs(t, err, domainerrors.ErrValidation, "at %s", at)

		_, err = idx.GetPost(ctx, postID)
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	}

	all, err := idx.ListRecentPosts(ctx, store.PaginationParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, postIDs(all.Items))

	cook, err := idx.ListPostsByCategory(ctx, domain.CategoryCook, store.PaginationParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, postIDs(cook.Items))

	mine, err := idx.ListPostsByCreator(ctx, creator, store.PaginationParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, postIDs(mine.Items))

	acct, err := idx.GetAccount(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, int64(2), acct.PostCount)
}

func testFeedPagination(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator := Addr(41)

	var want []string
	for i := range 7 {
		postID := fmt.Sprint(100 + i)
		// Pairs share a timestamp to exercise the tie-break across page boundaries.
		MustApply(t, idx, Mint(EventID(500+i, 0), creator, postID, domain.CategoryTaste, Base.Add(-time.Duration(i/2)*time.Minute), 0))
		want = append(want, postID)
	}

	var got []string
	params := store.PaginationParams{Limit: 3}
	pages := 0
	for {
		page, err := idx.ListPostsByCategory(ctx, domain.CategoryTaste, params)
		require.NoError(t, err)
		got = append(got, postIDs(page.Items)...)
		pages++
		if !page.HasMore {
			break
		}
		require.NotEmpty(t, page.NextCursor)
		params.Cursor = page.NextCursor
		require.Less(t, pages, 10)
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, want, got)
}

func testListByCreator(t *testing.T, idx store.Index) {
	ctx := context.Background()
	a, b := Addr(50), Addr(51)

	MustApply(t, idx, Mint(EventID(1, 0), a, "1", domain.CategoryCook, Base, 0))
	MustApply(t, idx, Mint(EventID(2, 0), b, "2", domain.CategoryCook, Base.Add(time.Minute), 0))
	MustApply(t, idx, Mint(EventID(3, 0), a, "3", domain.CategoryTaste, Base.Add(2*time.Minute), 0))

	posts, err := idx.ListPostsByCreator(ctx, a, store.PaginationParams{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, postIDs(posts.Items))

	none, err := idx.ListPostsByCreator(ctx, Addr(52), store.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
}

func testInvalidCursor(t *testing.T, idx store.Index) {
	_, err := idx.ListRecentPosts(context.Background(), store.PaginationParams{Cursor: "not-valid-base64!!!"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func testLeaderboardTieBreak(t *testing.T, idx store.Index) {
	ctx := context.Background()
	a, b, c := Addr(0xa), Addr(0xb), Addr(0xc)
	liker := Addr(0xf)

	// C:30, B:50, A:50
	MustApply(t, idx, Mint(EventID(1, 0), c, "1", domain.CategoryCook, Base, 30))
	MustApply(t, idx, Mint(EventID(2, 0), b, "2", domain.CategoryCook, Base, 20))
	MustApply(t, idx, LikeOf(EventID(3, 0), "2", liker, b, Base, 30))
	MustApply(t, idx, Mint(EventID(4, 0), a, "3", domain.CategoryCook, Base, 50))

	for range 3 {
		board, err := idx.Leaderboard(ctx, 3, time.Time{})
		require.NoError(t, err)
		require.Len(t, board, 3)
		assert.Equal(t, []string{a, b, c}, []string{board[0].Address, board[1].Address, board[2].Address})
		assert.Equal(t, "50", board[0].TotalEarned.String())
		assert.Equal(t, "30", board[2].TotalEarned.String())
	}

	full, err := idx.Leaderboard(ctx, 10, time.Time{})
	require.NoError(t, err)
	require.Len(t, full, 4)
	assert.Equal(t, liker, full[3].Address)

	empty, err := idx.Leaderboard(ctx, 0, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testLeaderboardRecent(t *testing.T, idx store.Index) {
	ctx := context.Background()
	old, fresh := Addr(60), Addr(61)
	now := Base.Add(30 * 24 * time.Hour)

	MustApply(t, idx, Mint(EventID(1, 0), old, "1", domain.CategoryCook, Base, 100))
	MustApply(t, idx, Mint(EventID(2, 0), fresh, "2", domain.CategoryCook, now.Add(-time.Hour), 10))

	since := now.Add(-domain.DefaultRecentWindow)
	recent, err := idx.Leaderboard(ctx, 10, since)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, fresh, recent[0].Address)

	all, err := idx.Leaderboard(ctx, 10, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, old, all[0].Address)

	// A like from the old account makes it recently active again.
	MustApply(t, idx, LikeOf(EventID(3, 0), "2", old, fresh, now, 1))
	recent, err = idx.Leaderboard(ctx, 10, since)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, old, recent[0].Address)
}

func testProfileUpdate(t *testing.T, idx store.Index) {
	ctx := context.Background()
	addr := Addr(70)
	name := "Chef Ana"
	avatar := "ipfs://bafyavatar"

	acct, err := idx.UpdateProfile(ctx, addr, domain.ProfileUpdate{DisplayName: &name}, Base)
	require.NoError(t, err)
	assert.Equal(t, name, acct.DisplayName)
	assert.True(t, acct.LastActive.Equal(Base))
	assert.True(t, acct.CreatedAt.Equal(Base))

	MustApply(t, idx, Mint(EventID(1, 0), addr, "1", domain.CategoryCook, Base.Add(time.Minute), 4))

	acct, err = idx.UpdateProfile(ctx, addr, domain.ProfileUpdate{AvatarRef: &avatar}, Base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, name, acct.DisplayName)
	assert.Equal(t, avatar, acct.AvatarRef)
	assert.Equal(t, int64(1), acct.PostCount)
	assert.Equal(t, "4", acct.TotalEarned.String())

	stored, err := idx.GetAccount(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, avatar, stored.AvatarRef)
	assert.True(t, stored.LastActive.Equal(Base.Add(time.Hour)))

	board, err := idx.Leaderboard(ctx, 10, Base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, name, board[0].DisplayName)
}

func testCheckpoint(t *testing.T, idx store.Index) {
	ctx := context.Background()

	id, err := idx.GetCheckpoint(ctx, "reconcile")
	require.NoError(t, err)
	assert.True(t, id.IsZero())

	require.NoError(t, idx.SetCheckpoint(ctx, "reconcile", EventID(5, 2)))
	require.NoError(t, idx.SetCheckpoint(ctx, "other", EventID(6, 0)))

	id, err = idx.GetCheckpoint(ctx, "reconcile")
	require.NoError(t, err)
	assert.Equal(t, EventID(5, 2), id)
}

func testAllPostsAndStats(t *testing.T, idx store.Index) {
	ctx := context.Background()
	creator, liker := Addr(80), Addr(81)

	for i := range 5 {
		MustApply(t, idx, Mint(EventID(i+1, 0), creator, fmt.Sprint(i+1), domain.CategoryCook, Base, 0))
	}
	MustApply(t, idx, LikeOf(EventID(9, 0), "1", liker, creator, Base, 1))

	var seen int
	for post, err := range idx.AllPosts(ctx) {
		require.NoError(t, err)
		require.NotNil(t, post)
		seen++
	}
	assert.Equal(t, 5, seen)

	var partial int
	for range idx.AllPosts(ctx) {
		partial++
		if partial == 2 {
			break
		}
	}
	assert.Equal(t, 2, partial)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &store.Stats{Posts: 5, Likes: 1, Accounts: 2, ProcessedEvents: 6}, stats)

	require.NoError(t, idx.Ping(ctx))
}

func testNotFound(t *testing.T, idx store.Index) {
	ctx := context.Background()

	_, err := idx.GetPost(ctx, "404")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = idx.GetAccount(ctx, Addr(404))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = idx.GetLike(ctx, "404", Addr(1))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
