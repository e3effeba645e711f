package horus

import "sync"

type sequenceKey struct {
	episode, sequence string
}

type mediaKey struct {
	episode, sequence, shot, department string
}

// Cache holds parsed status documents per sequence and parsed media listings
// per department. Entries are filled on first access and live until they are
// invalidated; nothing expires on its own. Values are copied in and out so a
// caller can never mutate cached state.
type Cache struct {
	mu       sync.Mutex
	statuses map[sequenceKey]*StatusDocument
	media    map[mediaKey][]MediaRecord
}

func NewCache() *Cache {
	return &Cache{
		statuses: make(map[sequenceKey]*StatusDocument),
		media:    make(map[mediaKey][]MediaRecord),
	}
}

func (c *Cache) status(episode, sequence string) (*StatusDocument, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.statuses[sequenceKey{episode, sequence}]
	if !ok {
		return nil, false
	}
	return doc.clone(), true
}

func (c *Cache) putStatus(episode, sequence string, doc *StatusDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[sequenceKey{episode, sequence}] = doc.clone()
}

// InvalidateStatus drops the cached status document of one sequence.
func (c *Cache) InvalidateStatus(episode, sequence string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.statuses, sequenceKey{episode, sequence})
}

func (c *Cache) mediaList(episode, sequence, shot, department string) ([]MediaRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	records, ok := c.media[mediaKey{episode, sequence, shot, department}]
	if !ok {
		return nil, false
	}
	return cloneMedia(records), true
}

func (c *Cache) putMedia(episode, sequence, shot, department string, records []MediaRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.media[mediaKey{episode, sequence, shot, department}] = cloneMedia(records)
}

// InvalidateMedia drops the cached listing of one department output directory.
func (c *Cache) InvalidateMedia(episode, sequence, shot, department string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.media, mediaKey{episode, sequence, shot, department})
}

// Clear drops everything. This backs the "Refresh" action.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = make(map[sequenceKey]*StatusDocument)
	c.media = make(map[mediaKey][]MediaRecord)
}

// Len reports the number of cached status documents and media listings.
func (c *Cache) Len() (statuses, media int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.statuses), len(c.media)
}
