package backend

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionFirstResolveWins(t *testing.T) {
	c := newCompletion()
	first := errors.New("first")

	assert.True(t, c.Resolve(first))
	assert.False(t, c.Resolve(nil))
	assert.False(t, c.Resolve(errors.New("late")))

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed after Resolve")
	}
	assert.Same(t, first, c.Err())
}

func TestCompletionConcurrentResolve(t *testing.T) {
	c := newCompletion()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Resolve(nil) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.NoError(t, c.Err())
}

func TestLineRing(t *testing.T) {
	r := newLineRing(3)
	assert.Empty(t, r.Lines())

	r.Add("a")
	r.Add("b")
	assert.Equal(t, []string{"a", "b"}, r.Lines())

	r.Add("c")
	r.Add("d")
	assert.Equal(t, []string{"b", "c", "d"}, r.Lines())
}

func TestBuildEnv(t *testing.T) {
	base := []string{"HOME=/home/u", "PATH=/usr/bin", "PYTHONPATH=/old", "PATH=/dup"}
	env := buildEnv(base, "/app/.venv/bin", "/app")

	assert.Contains(t, env, "HOME=/home/u")
	assert.Contains(t, env, "PYTHONPATH=/app")
	assert.Equal(t, "/app/.venv/bin"+string(os.PathListSeparator)+"/dup", lookupEnv(env, "PATH"))

	count := 0
	for _, kv := range env {
		if len(kv) > 5 && kv[:5] == "PATH=" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestBuildEnvWithoutPath(t *testing.T) {
	env := buildEnv([]string{"HOME=/h"}, "/bin", "/mod")
	assert.Equal(t, "/bin", lookupEnv(env, "PATH"))
	assert.Equal(t, "/mod", lookupEnv(env, "PYTHONPATH"))
}

func TestStartupErrorIs(t *testing.T) {
	err := notFound("executable not found at %s", "/x")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrSpawn))
	assert.Equal(t, "executable not found at /x", err.Error())

	cause := errors.New("exec format error")
	wrapped := &StartupError{Kind: ErrSpawn, Msg: "failed to start backend", Err: cause}
	assert.True(t, errors.Is(wrapped, ErrSpawn))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, "failed to start backend: exec format error", wrapped.Error())
}
