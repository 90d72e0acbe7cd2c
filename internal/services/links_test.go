package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkStoreRoundTrip(t *testing.T) {
	s := NewLinkStore()
	for _, audio := range []bool{false, true} {
		url := "https://youtu.be/dQw4w9WgXcQ"
		token := s.Add(url, audio)
		assert.Len(t, token, 12)

		link, ok := s.Resolve(token)
		require.True(t, ok)
		assert.Equal(t, Link{URL: url, WantsAudio: audio}, link)
	}
}

func TestLinkStoreIdempotent(t *testing.T) {
	s := NewLinkStore()
	a := s.Add("https://youtube.com/shorts/abc", true)
	b := s.Add("https://youtube.com/shorts/abc", true)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, s.Len())

	c := s.Add("https://youtube.com/shorts/abc", false)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, s.Len())
}

func TestLinkTokenMatchesDigest(t *testing.T) {
	assert.Equal(t, "9f463c3d8c27", LinkToken("https://youtu.be/x", true))
	assert.Equal(t, LinkToken("https://youtu.be/x", true), NewLinkStore().Add("https://youtu.be/x", true))
	assert.Regexp(t, `^[0-9a-f]{12}$`, LinkToken("https://youtu.be/x", false))
}

func TestLinkStoreUnknownToken(t *testing.T) {
	s := NewLinkStore()
	_, ok := s.Resolve("deadbeef0000")
	assert.False(t, ok)
}

func TestLinkStoreConcurrentAdd(t *testing.T) {
	s := NewLinkStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := fmt.Sprintf("https://youtu.be/%d", i%10)
			token := s.Add(url, false)
			_, ok := s.Resolve(token)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, s.Len())
}

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=abc", "YouTube", true},
		{"https://YOUTU.BE/abc", "YouTube", true},
		{"https://pin.it/xyz", "Pinterest", true},
		{"https://www.pinterest.com/pin/123/", "Pinterest", true},
		{"https://vimeo.com/1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			p, ok := ClassifyURL(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, p.Name)
		})
	}
	assert.False(t, Pinterest.Audio)
	assert.True(t, YouTube.Audio)
}
