package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsume_MultibyteSplitAcrossReads(t *testing.T) {
	text := "بِسْمِ اللَّهِ — Zakat ✓"
	var published []string

	state, err := Consume(context.Background(), iotest.OneByteReader(strings.NewReader(text)), func(s string) {
		published = append(published, s)
	})
	require.NoError(t, err)
	assert.Equal(t, text, state.Raw)
	assert.Equal(t, text, state.Cleaned)
	for _, p := range published {
		assert.NotContains(t, p, "�", "partial rune published")
	}
	assert.Equal(t, text, published[len(published)-1])
}

func TestConsume_HidesReasoning(t *testing.T) {
	chunks := []string{"<thi", "nk>menimbang", " dalil</think>", "Zakat adalah ", "rukun Islam."}
	var published []string

	state, err := Consume(context.Background(), &chunkReader{chunks: chunks}, func(s string) {
		published = append(published, s)
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Join(chunks, ""), state.Raw)
	assert.Equal(t, "Zakat adalah rukun Islam.", state.Cleaned)
	for _, p := range published {
		assert.NotContains(t, p, "<")
		assert.NotContains(t, p, "menimbang")
	}
}

func TestConsume_PublishesReplacementNotDelta(t *testing.T) {
	var published []string
	_, err := Consume(context.Background(), &chunkReader{chunks: []string{"Za", "kat "}}, func(s string) {
		published = append(published, s)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Za", "Zakat "}, published)
}

func TestChunkReaderLeavesInputIntact(t *testing.T) {
	chunks := []string{"Za", "kat"}
	data, err := io.ReadAll(&chunkReader{chunks: chunks})
	require.NoError(t, err)
	assert.Equal(t, "Zakat", string(data))
	assert.Equal(t, []string{"Za", "kat"}, chunks)
}

func TestConsume_EmptyBody(t *testing.T) {
	calls := 0
	state, err := Consume(context.Background(), strings.NewReader(""), func(s string) {
		calls++
		assert.Empty(t, s)
	})
	require.NoError(t, err)
	assert.Empty(t, state.Raw)
	assert.Equal(t, 1, calls)
}

func TestConsume_ReadErrorKeepsPartial(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{chunks: []string{"Zakat "}, err: boom}

	state, err := Consume(context.Background(), r, nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "Zakat ", state.Cleaned)
}

func TestConsume_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Consume(ctx, strings.NewReader("ignored"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// chunkReader returns one chunk per Read, then err or EOF. The chunks slice
// is never modified.
type chunkReader struct {
	chunks []string
	err    error

	next, off int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.next >= len(r.chunks) {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.next][r.off:])
	r.off += n
	if r.off >= len(r.chunks[r.next]) {
		r.next, r.off = r.next+1, 0
	}
	return n, nil
}
