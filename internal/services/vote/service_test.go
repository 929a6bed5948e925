package vote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anoixa/eatinator/database/dbtest"
	"github.com/anoixa/eatinator/database/models"
	"github.com/anoixa/eatinator/database/repo/votes"
	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *votes.Repository) {
	t.Helper()
	db := dbtest.New(t)
	repo := votes.NewRepository(db)
	return NewService(repo, DefaultQuota, nil), repo
}

func TestGetVotes_UnknownKey(t *testing.T) {
	svc, _ := newTestService(t)

	tally, err := svc.GetVotes(context.Background(), "2024-01-15_lunch_Pasta")
	require.NoError(t, err)
	assert.Equal(t, Tally{}, tally)
}

func TestGetVotes_EmptyKey(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetVotes(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCastVote_Basic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tally, err := svc.CastVote(ctx, "k1", models.VoteGood, "u1")
	require.NoError(t, err)
	assert.Equal(t, Tally{Good: 1}, tally)

	tally, err = svc.CastVote(ctx, "k1", models.VoteBad, "u2")
	require.NoError(t, err)
	assert.Equal(t, Tally{Good: 1, Bad: 1}, tally)

	got, err := svc.GetVotes(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, tally, got)
}

func TestCastVote_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct{ key, voteType, user string }{
		{"", models.VoteGood, "u1"},
		{"k", "", "u1"},
		{"k", models.VoteGood, ""},
		{"k", "excellent", "u1"},
		{strings.Repeat("k", 201), models.VoteGood, "u1"},
		{"k", models.VoteGood, strings.Repeat("u", MaxUserIDLength+1)},
	}
	for _, tc := range cases {
		_, err := svc.CastVote(ctx, tc.key, tc.voteType, tc.user)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "%+v", tc)
	}

	tally, err := svc.GetVotes(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, Tally{}, tally)

	// 列宽上限内的 userId 可以投票
	tally, err = svc.CastVote(ctx, "k", models.VoteGood, strings.Repeat("u", MaxUserIDLength))
	require.NoError(t, err)
	assert.Equal(t, Tally{Good: 1}, tally)
}

func TestCastVote_AlreadyVoted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CastVote(ctx, "k1", models.VoteGood, "u1")
	require.NoError(t, err)

	_, err = svc.CastVote(ctx, "k1", models.VoteBad, "u1")
	assert.ErrorIs(t, err, apperr.ErrAlreadyVoted)

	tally, err := svc.GetVotes(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, Tally{Good: 1}, tally)
}

// TestCastVote_Quota 第 11 票被拒绝且不产生任何写入
func TestCastVote_Quota(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < DefaultQuota; i++ {
		_, err := svc.CastVote(ctx, fmt.Sprintf("k%d", i), models.VoteNeutral, "u1")
		require.NoError(t, err)
	}

	_, err := svc.CastVote(ctx, "k-extra", models.VoteGood, "u1")
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)

	tally, err := svc.GetVotes(ctx, "k-extra")
	require.NoError(t, err)
	assert.Equal(t, Tally{}, tally)

	// 其他用户不受影响
	_, err = svc.CastVote(ctx, "k-extra", models.VoteGood, "u2")
	assert.NoError(t, err)
}

// TestCastVote_ConcurrentSameKey 同一用户同一键并发投票只有一次成功
func TestCastVote_ConcurrentSameKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	var success, already atomic.Int32

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CastVote(ctx, "hot-key", models.VoteGood, "u1")
			switch {
			case err == nil:
				success.Add(1)
			case assert.ErrorIs(t, err, apperr.ErrAlreadyVoted):
				already.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), success.Load())
	assert.Equal(t, int32(workers-1), already.Load())

	tally, err := svc.GetVotes(ctx, "hot-key")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.Good)
}

// TestCastVote_ConcurrentQuota 同一用户并发投 15 个不同键，恰好 10 个成功
func TestCastVote_ConcurrentQuota(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var success, rejected atomic.Int32

	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CastVote(ctx, fmt.Sprintf("key-%d", i), models.VoteGood, "u1")
			if err == nil {
				success.Add(1)
				return
			}
			if assert.ErrorIs(t, err, apperr.ErrQuotaExceeded) {
				rejected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(DefaultQuota), success.Load())
	assert.Equal(t, int32(5), rejected.Load())

	stats, err := repo.GetStats(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultQuota), stats.TotalGood)
}

// TestCastVote_ConcurrentManyUsers 多用户并发投同一键，计数等于成功次数
func TestCastVote_ConcurrentManyUsers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const users = 30
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CastVote(ctx, "shared", models.VoteBad, fmt.Sprintf("user-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	tally, err := svc.GetVotes(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(users), tally.Bad)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CastVote(ctx, "a", models.VoteGood, "u1")
	require.NoError(t, err)
	_, err = svc.CastVote(ctx, "b", models.VoteBad, "u1")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, 7*24*time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Keys)
	assert.Equal(t, int64(2), stats.RecentVotes)
}

func TestStripedLock_SameKeySerializes(t *testing.T) {
	l := newStripedLock(4)
	unlock := l.lock("u1")

	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		l.lock("u1")()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	default:
	}
	unlock()
	<-acquired
}
