package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kaku/application/ports"
	"kaku/infrastructure/persistence/persistencetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kaku.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPoIRepository(t *testing.T) {
	persistencetest.RunPoIRepository(t, func(t *testing.T) ports.PoIRepository {
		return NewPoIRepository(openTestStore(t))
	})
}

func TestProjectRepository(t *testing.T) {
	persistencetest.RunProjectRepository(t, func(t *testing.T) ports.ProjectRepository {
		return NewProjectRepository(openTestStore(t))
	})
}

func TestScribeRepository(t *testing.T) {
	persistencetest.RunScribeRepository(t, func(t *testing.T) ports.ScribeRepository {
		return NewScribeRepository(openTestStore(t))
	})
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaku.db")
	first, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
