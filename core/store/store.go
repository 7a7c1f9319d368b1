package store

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/siherrmann/scenegraph/core/ids"
	"github.com/siherrmann/scenegraph/model"
)

type abstractKey struct {
	class model.Class
	label string
}

type coordinateKey struct {
	domain model.TimeDomain
	t      float64
	key    string
}

type bucketKey struct {
	domain model.TimeDomain
	bucket int64
}

// Store is the scene graph of one ingestion session: entities by id plus the
// secondary indexes used for entity resolution and queries.
//
// The store supports a single writer. Reads are safe while nothing writes.
type Store struct {
	mu sync.RWMutex

	entities map[string]*model.Entity
	ordinals map[string]uint32
	order    []string

	externalIDs map[string]string
	abstract    map[abstractKey]string
	coordinates map[coordinateKey]string
	locatedAt   map[bucketKey][]string
	outgoing    map[string][]string
	incoming    map[string][]string
	videoID     string

	byType   map[model.EntityType]*roaring.Bitmap
	byClass  map[model.Class]*roaring.Bitmap
	byDomain map[model.TimeDomain]*roaring.Bitmap

	ids *ids.Allocator
}

func New() *Store {
	return &Store{
		entities:    map[string]*model.Entity{},
		ordinals:    map[string]uint32{},
		externalIDs: map[string]string{},
		abstract:    map[abstractKey]string{},
		coordinates: map[coordinateKey]string{},
		locatedAt:   map[bucketKey][]string{},
		outgoing:    map[string][]string{},
		incoming:    map[string][]string{},
		byType:      map[model.EntityType]*roaring.Bitmap{},
		byClass:     map[model.Class]*roaring.Bitmap{},
		byDomain:    map[model.TimeDomain]*roaring.Bitmap{},
		ids:         ids.NewAllocator(),
	}
}

// NextObjectID allocates a new object identifier.
func (s *Store) NextObjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.NextObjectID()
}

// NextPropertyID allocates a new property identifier.
func (s *Store) NextPropertyID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.NextPropertyID()
}

// Allocated returns how many object and property ids were issued.
func (s *Store) Allocated() (objects uint64, properties uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.Objects(), s.ids.Properties()
}

// Add inserts the entity or overwrites the entity with the same id.
// An overwritten entity keeps its position in iteration order.
func (s *Store) Add(entity *model.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(entity, true)
}

// Insert adds a new entity and fails if the id is already taken.
func (s *Store) Insert(entity *model.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(entity, false)
}

func (s *Store) put(entity *model.Entity, overwrite bool) error {
	if entity == nil {
		return fmt.Errorf("%w: nil entity", model.ErrInvalidEntity)
	}
	if err := entity.Validate(); err != nil {
		return err
	}

	old, exists := s.entities[entity.ID]
	if exists && !overwrite {
		return fmt.Errorf("%w: %s", model.ErrDuplicateIdentifier, entity.ID)
	}

	for _, externalID := range entity.InputIDs {
		if bound, ok := s.externalIDs[externalID]; ok && bound != entity.ID {
			return fmt.Errorf("%w: external id %q is bound to %s", model.ErrDuplicateIdentifier, externalID, bound)
		}
	}

	ordinal, ok := s.ordinals[entity.ID]
	if !ok {
		ordinal = uint32(len(s.order))
		s.ordinals[entity.ID] = ordinal
		s.order = append(s.order, entity.ID)
	}
	if exists {
		s.unindex(old, ordinal)
	}

	s.entities[entity.ID] = entity
	s.index(entity, ordinal)
	return nil
}

func (s *Store) index(e *model.Entity, ordinal uint32) {
	bitmapFor(s.byType, e.Type).Add(ordinal)
	bitmapFor(s.byClass, e.Class).Add(ordinal)
	if domain := e.Value.Domain(); len(domain) > 0 {
		bitmapFor(s.byDomain, domain).Add(ordinal)
	}

	for _, externalID := range e.InputIDs {
		s.externalIDs[externalID] = e.ID
	}
	if e.Type == model.EntityTypeObject && e.Class == model.ClassVideo && len(s.videoID) == 0 {
		s.videoID = e.ID
	}

	if e.Type != model.EntityTypeProperty {
		return
	}
	s.outgoing[e.Source] = append(s.outgoing[e.Source], e.ID)
	s.incoming[e.Target] = append(s.incoming[e.Target], e.ID)
	if e.Class == model.ClassLocatedAt {
		if key, ok := locatedAtKey(e); ok {
			s.locatedAt[key] = append(s.locatedAt[key], e.ID)
		}
	}
}

func (s *Store) unindex(e *model.Entity, ordinal uint32) {
	s.byType[e.Type].Remove(ordinal)
	s.byClass[e.Class].Remove(ordinal)
	if domain := e.Value.Domain(); len(domain) > 0 {
		s.byDomain[domain].Remove(ordinal)
	}

	for _, externalID := range e.InputIDs {
		if s.externalIDs[externalID] == e.ID {
			delete(s.externalIDs, externalID)
		}
	}

	if e.Type != model.EntityTypeProperty {
		return
	}
	s.outgoing[e.Source] = removeID(s.outgoing[e.Source], e.ID)
	s.incoming[e.Target] = removeID(s.incoming[e.Target], e.ID)
	if e.Class == model.ClassLocatedAt {
		if key, ok := locatedAtKey(e); ok {
			s.locatedAt[key] = removeID(s.locatedAt[key], e.ID)
		}
	}
}

func locatedAtKey(e *model.Entity) (bucketKey, bool) {
	domain := e.Value.Domain()
	t, ok := e.Timestamp(domain)
	if !ok {
		return bucketKey{}, false
	}
	return bucketKey{domain: domain, bucket: int64(math.Floor(t))}, true
}

func removeID(list []string, id string) []string {
	return slices.DeleteFunc(list, func(v string) bool { return v == id })
}

func bitmapFor[K comparable](m map[K]*roaring.Bitmap, key K) *roaring.Bitmap {
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	return bm
}

// Get returns the entity with the given id.
// The returned entity must not be modified; use Clone and Add instead.
func (s *Store) Get(id string) (*model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return e, nil
}

// Has reports whether an entity with the id exists.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok
}

// Len returns the number of entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Iterate yields all entities in insertion order. Each call starts a fresh
// pass bounded by the entities present when it starts.
func (s *Store) Iterate() iter.Seq[*model.Entity] {
	return func(yield func(*model.Entity) bool) {
		s.mu.RLock()
		n := len(s.order)
		s.mu.RUnlock()

		for i := 0; i < n; i++ {
			s.mu.RLock()
			e := s.entities[s.order[i]]
			s.mu.RUnlock()

			if !yield(e) {
				return
			}
		}
	}
}

// Select yields the entities matching any of types, any of classes and the
// time domain, in insertion order. Empty filters match everything.
func (s *Store) Select(types []model.EntityType, classes []model.Class, domain model.TimeDomain) iter.Seq[*model.Entity] {
	return func(yield func(*model.Entity) bool) {
		s.mu.RLock()
		selected := s.selection(types, classes, domain)
		s.mu.RUnlock()

		it := selected.Iterator()
		for it.HasNext() {
			ordinal := it.Next()

			s.mu.RLock()
			e := s.entities[s.order[ordinal]]
			s.mu.RUnlock()

			if !yield(e) {
				return
			}
		}
	}
}

// Count returns the number of entities Select would yield.
func (s *Store) Count(types []model.EntityType, classes []model.Class, domain model.TimeDomain) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection(types, classes, domain).GetCardinality()
}

func (s *Store) selection(types []model.EntityType, classes []model.Class, domain model.TimeDomain) *roaring.Bitmap {
	all := roaring.New()
	all.AddRange(0, uint64(len(s.order)))

	if len(types) > 0 {
		all.And(union(s.byType, types))
	}
	if len(classes) > 0 {
		all.And(union(s.byClass, classes))
	}
	if len(domain) > 0 {
		if bm, ok := s.byDomain[domain]; ok {
			all.And(bm)
		} else {
			all.Clear()
		}
	}
	return all
}

func union[K comparable](m map[K]*roaring.Bitmap, keys []K) *roaring.Bitmap {
	bitmaps := make([]*roaring.Bitmap, 0, len(keys))
	for _, key := range keys {
		if bm, ok := m[key]; ok {
			bitmaps = append(bitmaps, bm)
		}
	}
	return roaring.FastOr(bitmaps...)
}

// ObjectIDByExternalID resolves an upstream id to the bound object id.
func (s *Store) ObjectIDByExternalID(externalID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.externalIDs[externalID]
	return id, ok
}

// AbstractObjectID returns the object deduplicated under (class, label).
func (s *Store) AbstractObjectID(class model.Class, label string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.abstract[abstractKey{class: class, label: label}]
	return id, ok
}

// SetAbstractObject registers an existing object under (class, label).
func (s *Store) SetAbstractObject(class model.Class, label string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	s.abstract[abstractKey{class: class, label: label}] = id
	return nil
}

// CoordinateObjectID returns the video_box object of box at exactly t.
func (s *Store) CoordinateObjectID(domain model.TimeDomain, t float64, box model.Box) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.coordinates[coordinateKey{domain: domain, t: t, key: box.Key()}]
	return id, ok
}

// SetCoordinateObject registers an existing video_box object for box at t.
func (s *Store) SetCoordinateObject(domain model.TimeDomain, t float64, box model.Box, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	s.coordinates[coordinateKey{domain: domain, t: t, key: box.Key()}] = id
	return nil
}

// LocatedAtIDs returns the located_at property ids of a floor bucket in insertion order.
func (s *Store) LocatedAtIDs(domain model.TimeDomain, bucket int64) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.locatedAt[bucketKey{domain: domain, bucket: bucket}])
}

// VideoID returns the id of the video singleton if it was created.
func (s *Store) VideoID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.videoID, len(s.videoID) > 0
}

// Outgoing returns the ids of properties whose source is id.
func (s *Store) Outgoing(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.outgoing[id])
}

// Incoming returns the ids of properties whose target is id.
func (s *Store) Incoming(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.incoming[id])
}
