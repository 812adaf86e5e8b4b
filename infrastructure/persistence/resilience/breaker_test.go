package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kaku/application/ports/mocks"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

type recorded struct {
	op  string
	err error
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (f *fakeRecorder) ObserveStore(op string, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recorded{op, err})
}

func testSettings() Settings {
	s := DefaultSettings("store")
	s.MinRequests = 3
	s.FailureThreshold = 0.5
	s.Timeout = time.Hour
	return s
}

func TestBreaker_DomainErrorsDoNotTrip(t *testing.T) {
	repo := new(mocks.MockPoIRepository)
	repo.On("Get", mock.Anything, mock.Anything).Return(nil, pkgerrors.NewNotFoundError("poi"))
	b := NewBreaker(testSettings(), nil, zap.NewNop())
	guarded := NewPoIRepository(repo, b)

	for i := 0; i < 10; i++ {
		_, err := guarded.Get(context.Background(), valueobjects.NewPoIID())
		assert.True(t, pkgerrors.IsNotFound(err))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_OpensOnStoreFailures(t *testing.T) {
	repo := new(mocks.MockPoIRepository)
	repo.On("Delete", mock.Anything, mock.Anything).Return(pkgerrors.NewDatabaseError("delete", errors.New("disk full")))
	rec := &fakeRecorder{}
	b := NewBreaker(testSettings(), rec, zap.NewNop())
	guarded := NewPoIRepository(repo, b)

	for i := 0; i < 3; i++ {
		err := guarded.Delete(context.Background(), valueobjects.NewPoIID())
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeDatabase))
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	err := guarded.Delete(context.Background(), valueobjects.NewPoIID())
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
	repo.AssertNumberOfCalls(t, "Delete", 3)

	require.Len(t, rec.calls, 4)
	assert.Equal(t, "poi.delete", rec.calls[0].op)
}

func TestBreaker_PassesResultsThrough(t *testing.T) {
	repo := new(mocks.MockPoIRepository)
	id := valueobjects.NewPoIID()
	repo.On("GetMany", mock.Anything, []valueobjects.PoIID{id}).Return(nil, nil)
	guarded := NewPoIRepository(repo, NewBreaker(testSettings(), nil, zap.NewNop()))

	got, err := guarded.GetMany(context.Background(), []valueobjects.PoIID{id})
	require.NoError(t, err)
	assert.Empty(t, got)
}
