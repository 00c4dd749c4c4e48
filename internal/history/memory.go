package history

import (
	"context"
	"errors"
	"strings"
	"sync"

	"reclink/internal/media"
)

// MemoryStore is a Store that lives only as long as the process. It backs the
// history when persistence is disabled in the config.
type MemoryStore struct {
	mu    sync.Mutex
	links []media.ShareLink // newest first
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) ([]media.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]media.ShareLink, len(m.links))
	for i, l := range m.links {
		out[i] = copyLink(l)
	}
	return out, nil
}

func (m *MemoryStore) Save(ctx context.Context, links []media.ShareLink) error {
	links = normalize(links)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = m.links[:0]
	for _, l := range links {
		m.links = append(m.links, copyLink(l))
	}
	return nil
}

func (m *MemoryStore) Append(ctx context.Context, link media.ShareLink) error {
	link.URL = strings.TrimSpace(link.URL)
	if link.URL == "" {
		return errors.New("history entry has no URL")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := Find(m.links, link.URL); ok {
		return nil
	}
	m.links = normalize(append([]media.ShareLink{copyLink(link)}, m.links...))
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.links[:0]
	for _, l := range m.links {
		if l.URL != url {
			kept = append(kept, l)
		}
	}
	m.links = kept
	return nil
}

func (m *MemoryStore) SetResolved(ctx context.Context, url string, res media.Resolved) error {
	url = strings.TrimSpace(url)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.links {
		if m.links[i].URL == url {
			m.links[i].Resolved = media.NewResolved(res.MediaURL, res.MIME)
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func copyLink(l media.ShareLink) media.ShareLink {
	if l.Resolved != nil {
		r := *l.Resolved
		l.Resolved = &r
	}
	return l
}
