package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dias221467/Walk_Companion/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type walkStore interface {
	Create(ctx context.Context, req *models.WalkRequest) error
	Get(ctx context.Context, id string) (*models.WalkRequest, error)
	Transition(ctx context.Context, id string, change models.StatusChange) (*models.WalkRequest, error)
	Find(ctx context.Context, filter models.WalkFilter) ([]models.WalkRequest, error)
}

var (
	_ walkStore = (*MemoryWalkStore)(nil)
	_ walkStore = (*BoltWalkStore)(nil)
	_ walkStore = (*WalkRequestRepository)(nil)
)

func storeFactories(t *testing.T) map[string]func(t *testing.T) walkStore {
	return map[string]func(t *testing.T) walkStore{
		"memory": func(t *testing.T) walkStore { return NewMemoryWalkStore() },
		"bolt": func(t *testing.T) walkStore {
			s, err := OpenBoltWalkStore(filepath.Join(t.TempDir(), "walks.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func newRecord(id, requester string, created time.Time) *models.WalkRequest {
	return &models.WalkRequest{
		ID:           id,
		RequesterID:  requester,
		FromLocation: "Campus Gate",
		Destination:  "Library",
		WalkDate:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		WalkTime:     "18:00",
		Status:       models.StatusActive,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestWalkStores(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("create and get", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Create(ctx, newRecord("r1", "alice", base)))

				got, err := s.Get(ctx, "r1")
				require.NoError(t, err)
				assert.Equal(t, "alice", got.RequesterID)
				assert.Equal(t, models.StatusActive, got.Status)
				assert.Empty(t, got.CompanionID)

				assert.ErrorIs(t, s.Create(ctx, newRecord("r1", "bob", base)), ErrDuplicateID)
			})

			t.Run("get missing", func(t *testing.T) {
				s := factory(t)
				_, err := s.Get(ctx, "nope")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("transition applies fields", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Create(ctx, newRecord("r1", "alice", base)))

				at := base.Add(time.Hour)
				got, err := s.Transition(ctx, "r1", models.StatusChange{
					From: models.StatusActive, To: models.StatusAccepted, At: at, CompanionID: "bob",
				})
				require.NoError(t, err)
				assert.Equal(t, models.StatusAccepted, got.Status)
				assert.Equal(t, "bob", got.CompanionID)
				require.NotNil(t, got.AcceptedAt)
				assert.True(t, got.AcceptedAt.Equal(at))
				assert.True(t, got.UpdatedAt.Equal(at))

				cancelAt := at.Add(time.Hour)
				got, err = s.Transition(ctx, "r1", models.StatusChange{
					From: models.StatusAccepted, To: models.StatusCancelled, At: cancelAt, CancellationReason: "rain",
				})
				require.NoError(t, err)
				assert.Equal(t, "rain", got.CancellationReason)
				assert.Equal(t, "bob", got.CompanionID)
				require.NotNil(t, got.CancelledAt)
				assert.True(t, got.AcceptedAt.Equal(at))
			})

			t.Run("transition mismatch and missing", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Create(ctx, newRecord("r1", "alice", base)))

				_, err := s.Transition(ctx, "r1", models.StatusChange{
					From: models.StatusAccepted, To: models.StatusCompleted, At: base,
				})
				var mismatch *StatusMismatchError
				require.True(t, errors.As(err, &mismatch))
				assert.Equal(t, models.StatusAccepted, mismatch.Expected)
				assert.Equal(t, models.StatusActive, mismatch.Actual)

				_, err = s.Transition(ctx, "missing", models.StatusChange{From: models.StatusActive, To: models.StatusCancelled})
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("concurrent transitions have one winner", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Create(ctx, newRecord("r1", "alice", base)))

				const n = 16
				var wins int32
				var wg sync.WaitGroup
				for i := 0; i < n; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						_, err := s.Transition(ctx, "r1", models.StatusChange{
							From: models.StatusActive, To: models.StatusAccepted, At: base, CompanionID: fmt.Sprintf("u%d", i),
						})
						if err == nil {
							atomic.AddInt32(&wins, 1)
							return
						}
						var mismatch *StatusMismatchError
						assert.True(t, errors.As(err, &mismatch))
					}(i)
				}
				wg.Wait()
				assert.EqualValues(t, 1, wins)
			})

			t.Run("find filters", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Create(ctx, newRecord("a1", "alice", base)))
				require.NoError(t, s.Create(ctx, newRecord("b1", "bob", base)))
				require.NoError(t, s.Create(ctx, newRecord("a2", "alice", base)))
				_, err := s.Transition(ctx, "a2", models.StatusChange{
					From: models.StatusActive, To: models.StatusAccepted, At: base, CompanionID: "bob",
				})
				require.NoError(t, err)

				ids := func(reqs []models.WalkRequest) []string {
					var out []string
					for _, r := range reqs {
						out = append(out, r.ID)
					}
					return out
				}

				got, err := s.Find(ctx, models.WalkFilter{Statuses: []models.WalkStatus{models.StatusActive}, ExcludeRequesterID: "bob"})
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"a1"}, ids(got))

				got, err = s.Find(ctx, models.WalkFilter{ParticipantID: "bob"})
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"b1", "a2"}, ids(got))

				got, err = s.Find(ctx, models.WalkFilter{CompanionID: "bob", Statuses: []models.WalkStatus{models.StatusAccepted}})
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"a2"}, ids(got))

				got, err = s.Find(ctx, models.WalkFilter{RequesterID: "alice", ExcludeRequesterID: "bob"})
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"a1", "a2"}, ids(got))

				got, err = s.Find(ctx, models.WalkFilter{RequesterID: "alice", ExcludeRequesterID: "alice"})
				require.NoError(t, err)
				assert.Empty(t, got)
			})
		})
	}
}

func TestBoltWalkStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "walks.db")

	s, err := OpenBoltWalkStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, newRecord("r1", "alice", time.Now().UTC())))
	require.NoError(t, s.Close())

	s, err = OpenBoltWalkStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Campus Gate", got.FromLocation)
}
