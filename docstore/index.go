package docstore

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// indexState is the committed state of one secondary index.
//
// keys holds every distinct encoded key in ascending order; postings maps a
// key to the document numbers stored under it. Versions are bumped for every
// commit touching a document of the index, per partition (first key
// component) and for the whole index.
type indexState struct {
	name       string
	keys       []string
	postings   map[string]*roaring.Bitmap
	partitions map[string]uint64
	version    uint64
}

func newIndexState(name string) *indexState {
	return &indexState{
		name:       name,
		postings:   make(map[string]*roaring.Bitmap),
		partitions: make(map[string]uint64),
	}
}

func (ix *indexState) add(key string, num uint32) {
	bm, ok := ix.postings[key]
	if !ok {
		bm = roaring.New()
		ix.postings[key] = bm
		i := sort.SearchStrings(ix.keys, key)
		ix.keys = append(ix.keys, "")
		copy(ix.keys[i+1:], ix.keys[i:])
		ix.keys[i] = key
	}
	bm.Add(num)
}

func (ix *indexState) remove(key string, num uint32) {
	bm, ok := ix.postings[key]
	if !ok {
		return
	}
	bm.Remove(num)
	if !bm.IsEmpty() {
		return
	}
	delete(ix.postings, key)
	i := sort.SearchStrings(ix.keys, key)
	if i < len(ix.keys) && ix.keys[i] == key {
		ix.keys = append(ix.keys[:i], ix.keys[i+1:]...)
	}
}

// touch records that a document stored under key changed at version.
func (ix *indexState) touch(key string, version uint64) {
	ix.partitions[firstComponent(key)] = version
	ix.version = version
}

// observed returns the version a scan with the given encoded prefix depends on.
func (ix *indexState) observed(prefix string) uint64 {
	if prefix == "" {
		return ix.version
	}
	return ix.partitions[firstComponent(prefix)]
}

// scan calls fn for each (key, docNum) whose key starts with prefix, in
// ascending key order and ascending document number within a key.
func (ix *indexState) scan(prefix string, fn func(key string, num uint32)) {
	for i := sort.SearchStrings(ix.keys, prefix); i < len(ix.keys); i++ {
		key := ix.keys[i]
		if !strings.HasPrefix(key, prefix) {
			return
		}
		it := ix.postings[key].Iterator()
		for it.HasNext() {
			fn(key, it.Next())
		}
	}
}

// cardinality returns the number of indexed documents.
func (ix *indexState) cardinality() uint64 {
	var n uint64
	for _, bm := range ix.postings {
		n += bm.GetCardinality()
	}
	return n
}
