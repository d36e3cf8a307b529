package sensitivedata

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Track(t *testing.T) {
	t.Parallel()
	p := NewProvider()

	p.Track("secret1")
	p.Track("secret2")
	p.Track("secret1")
	p.Track("")

	assert.Equal(t, []string{"secret1", "secret2"}, p.AllValues())
	assert.Equal(t, "a [REDACTED] b [REDACTED]", p.ScrubString("a secret1 b secret2"))
}

func TestProvider_Concurrency(t *testing.T) {
	t.Parallel()
	p := NewProvider()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.Track(fmt.Sprintf("secret-%d", i))
		}()
		go func() {
			defer wg.Done()
			_ = p.AllValues()
		}()
	}

	wg.Wait()
	assert.Len(t, p.AllValues(), 50)
}

func TestSafeError(t *testing.T) {
	t.Parallel()
	provider := NewProvider()
	provider.Track("very-secret-token")

	plain := errors.New("something failed")
	assert.Same(t, plain, SafeError(plain, provider))
	assert.NoError(t, SafeError(nil, provider))

	cause := fmt.Errorf("write target: %w", os.ErrPermission)
	leaky := fmt.Errorf("expanding token very-secret-token: %w", cause)
	got := SafeError(leaky, provider)
	assert.EqualError(t, got, "expanding token [REDACTED]: write target: permission denied")
	assert.True(t, IsRedacted(got))
	assert.ErrorIs(t, got, os.ErrPermission, "chain is preserved")
}

func TestWriter_Scrubs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	provider := NewProvider()
	provider.Track("hunter2")

	w := NewWriter(&buf, provider, nil)
	n, err := w.Write([]byte("password=hunter2"))
	require.NoError(t, err)
	assert.Equal(t, len("password=hunter2"), n)
	assert.Equal(t, "password=[REDACTED]", buf.String())

	buf.Reset()
	_, err = NewWriter(&buf).Write([]byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", buf.String())
}
