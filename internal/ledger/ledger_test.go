package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasteapp/taste-index/internal/domain"
	domainerrors "github.com/tasteapp/taste-index/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func eventID(n int) domain.EventID {
	return domain.EventID{TxHash: fmt.Sprintf("0x%064x", n), LogIndex: 0}
}

func mintFact(n int) domain.Fact {
	return domain.NewMintedFact(eventID(n), base.Add(time.Duration(n)*time.Minute), domain.PostMinted{
		Creator:    fmt.Sprintf("0x%040x", 1),
		PostID:     fmt.Sprint(n),
		ContentRef: "ipfs://bafy" + fmt.Sprint(n),
		Category:   "cook",
		Reward:     domain.NewAmount(1),
	})
}

func ids(facts []domain.Fact) []domain.EventID {
	out := make([]domain.EventID, len(facts))
	for i, f := range facts {
		out[i] = f.ID
	}
	return out
}

func TestMemoryLedger_FactsAfter(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Append(mintFact(1), mintFact(2), mintFact(3)))

	all, err := l.FactsAfter(ctx, domain.EventID{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventID{eventID(1), eventID(2), eventID(3)}, ids(all))

	page, err := l.FactsAfter(ctx, eventID(1), 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventID{eventID(2)}, ids(page))

	tail, err := l.FactsAfter(ctx, eventID(3), 10)
	require.NoError(t, err)
	assert.Empty(t, tail)

	_, err = l.FactsAfter(ctx, eventID(99), 10)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestMemoryLedger_RejectsDuplicateEvent(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Append(mintFact(1)))

	err := l.Append(mintFact(2), mintFact(1))
	assert.Error(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLedger_FeedWaitsForAppends(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Append(mintFact(1), mintFact(2)))

	feed, err := l.Feed(eventID(1))
	require.NoError(t, err)
	defer feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := feed.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventID(2), d.Fact.ID)
	require.NoError(t, d.Ack(ctx))

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = l.Append(mintFact(3))
	}()

	d, err = feed.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventID(3), d.Fact.ID)
}

func TestMemoryLedger_FeedClose(t *testing.T) {
	l := NewMemoryLedger()
	feed, err := l.Feed(domain.EventID{})
	require.NoError(t, err)

	require.NoError(t, feed.Close())
	_, err = feed.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	_, err = l.Feed(eventID(5))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestFileLedger_AppendAndFactsAfter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l := NewFileLedger(path, testLogger())

	empty, err := l.FactsAfter(ctx, domain.EventID{}, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, l.Append(mintFact(1), mintFact(2)))

	// A malformed line and a blank line are skipped.
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString("{not json}\n\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	require.NoError(t, l.Append(mintFact(3)))

	all, err := l.FactsAfter(ctx, domain.EventID{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventID{eventID(1), eventID(2), eventID(3)}, ids(all))
	require.NotNil(t, all[0].Minted)
	assert.Equal(t, "1", all[0].Minted.PostID)
	assert.True(t, all[0].Timestamp.Equal(base.Add(time.Minute)))

	page, err := l.FactsAfter(ctx, eventID(1), 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventID{eventID(2)}, ids(page))

	_, err = l.FactsAfter(ctx, eventID(42), 1)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestFileLedger_FeedTailsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l := NewFileLedger(path, testLogger())
	require.NoError(t, l.Append(mintFact(1), mintFact(2)))

	feed := l.Feed(FileFeedOptions{After: eventID(1), PollInterval: 10 * time.Millisecond})
	defer feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := feed.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventID(2), d.Fact.ID)

	// A partial line is not delivered until it is complete.
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	line, err := mintFact(3).MarshalJSON()
	require.NoError(t, err)
	_, err = file.Write(line[:10])
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = file.Write(append(line[10:], '\n'))
		_ = file.Close()
	}()

	d, err = feed.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventID(3), d.Fact.ID)
}

func TestFileLedger_FeedStopsOnCancel(t *testing.T) {
	l := NewFileLedger(filepath.Join(t.TempDir(), "missing.jsonl"), testLogger())
	feed := l.Feed(FileFeedOptions{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := feed.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, feed.Close())
	_, err = feed.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestKafkaFeed_SkipsMalformedAndCommitsOnAck(t *testing.T) {
	value, err := mintFact(1).MarshalJSON()
	require.NoError(t, err)

	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 10, Value: []byte("garbage")},
		{Offset: 11, Value: value},
	}}
	feed := &KafkaFeed{reader: reader, logger: testLogger()}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	d, err := feed.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventID(1), d.Fact.ID)
	assert.Equal(t, []int64{10}, reader.committed)

	require.NoError(t, d.Ack(ctx))
	assert.Equal(t, []int64{10, 11}, reader.committed)

	_, err = feed.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_KeysByPost(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	like := domain.NewLikedFact(eventID(2), base, domain.PostLiked{PostID: "1", Liker: "0xa", Creator: "0xb"})
	require.NoError(t, p.Publish(context.Background(), mintFact(1), like))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "1", string(w.msgs[0].Key))
	assert.Equal(t, "1", string(w.msgs[1].Key))
	assert.Contains(t, string(w.msgs[1].Value), `"kind":"PostLiked"`)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, ParseBrokers(""))
}
