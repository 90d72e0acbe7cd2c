package services

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"sync"
)

const tokenLength = 12

// Link is the payload a button token stands for.
type Link struct {
	URL        string
	WantsAudio bool
}

// LinkStore maps short tokens to links so callback payloads stay small.
// Entries live for the lifetime of the process.
type LinkStore struct {
	mu    sync.RWMutex
	links map[string]Link
}

func NewLinkStore() *LinkStore {
	return &LinkStore{links: make(map[string]Link)}
}

// LinkToken derives the token for a link. Same input, same token.
func LinkToken(url string, wantsAudio bool) string {
	sum := md5.Sum([]byte(url + ":" + strconv.FormatBool(wantsAudio)))
	return hex.EncodeToString(sum[:])[:tokenLength]
}

func (s *LinkStore) Add(url string, wantsAudio bool) string {
	token := LinkToken(url, wantsAudio)
	s.mu.Lock()
	s.links[token] = Link{URL: url, WantsAudio: wantsAudio}
	s.mu.Unlock()
	return token
}

func (s *LinkStore) Resolve(token string) (Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[token]
	return l, ok
}

func (s *LinkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links)
}
