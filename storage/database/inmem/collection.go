package inmemdb

import (
	"context"
	"sort"

	"github.com/cresol/portal/core/collection"
)

type collectionRepository struct {
	db *DB
}

var _ collection.Repository = (*collectionRepository)(nil) // interface compliance check

func NewCollectionRepository(db *DB) *collectionRepository {
	return &collectionRepository{db: db}
}

// withItems attaches a fresh copy of the collection's items, ordered like the sqlx repository does.
func (repo *collectionRepository) withItems(c collection.Collection) collection.Collection {
	items := make([]collection.Item, 0)
	for _, it := range repo.db.items {
		if it.CollectionID == c.ID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].OrderIndex != items[j].OrderIndex {
			return items[i].OrderIndex < items[j].OrderIndex
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	c.Items = items
	return c
}

func (repo *collectionRepository) CreateCollection(_ context.Context, c collection.Collection) (collection.Collection, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	c.ID = newID()
	c.Items = nil
	repo.db.collections[c.ID] = c
	return repo.withItems(c), nil
}

func (repo *collectionRepository) QueryCollections(_ context.Context, filter *collection.QueryFilter) ([]collection.Collection, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	colls := make([]collection.Collection, 0, len(repo.db.collections))
	for _, c := range repo.db.collections {
		if filter != nil && filter.ActiveOnly && !c.IsActive {
			continue
		}
		colls = append(colls, repo.withItems(c))
	}
	sort.Slice(colls, func(i, j int) bool {
		if colls[i].OrderIndex != colls[j].OrderIndex {
			return colls[i].OrderIndex < colls[j].OrderIndex
		}
		return colls[i].Title < colls[j].Title
	})
	return colls, nil
}

func (repo *collectionRepository) GetCollection(_ context.Context, id string) (collection.Collection, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if c, ok := repo.db.collections[id]; ok {
		return repo.withItems(c), nil
	}
	return collection.Collection{}, collection.ErrNotFound
}

func (repo *collectionRepository) UpdateCollection(_ context.Context, c collection.Collection) (collection.Collection, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.collections[c.ID]; !ok {
		return collection.Collection{}, collection.ErrNotFound
	}
	c.Items = nil
	repo.db.collections[c.ID] = c
	return repo.withItems(c), nil
}

func (repo *collectionRepository) DeleteCollection(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.collections[id]; !ok {
		return collection.ErrNotFound
	}
	delete(repo.db.collections, id)
	for iid, it := range repo.db.items {
		if it.CollectionID == id {
			delete(repo.db.items, iid)
		}
	}
	return nil
}

func (repo *collectionRepository) MaxItemOrderIndex(_ context.Context, collectionID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	indexes := make([]int, 0)
	for _, it := range repo.db.items {
		if it.CollectionID == collectionID {
			indexes = append(indexes, it.OrderIndex)
		}
	}
	return maxOrderIndex(indexes), nil
}

func (repo *collectionRepository) CreateItem(_ context.Context, it collection.Item) (collection.Item, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.collections[it.CollectionID]; !ok {
		return collection.Item{}, collection.ErrNotFound
	}
	it.ID = newID()
	repo.db.items[it.ID] = it
	return it, nil
}

func (repo *collectionRepository) GetItem(_ context.Context, collectionID, id string) (collection.Item, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if it, ok := repo.db.items[id]; ok && it.CollectionID == collectionID {
		return it, nil
	}
	return collection.Item{}, collection.ErrItemNotFound
}

func (repo *collectionRepository) UpdateItem(_ context.Context, it collection.Item) (collection.Item, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	orig, ok := repo.db.items[it.ID]
	if !ok {
		return collection.Item{}, collection.ErrItemNotFound
	}
	it.CollectionID = orig.CollectionID
	it.CreatedAt = orig.CreatedAt
	repo.db.items[it.ID] = it
	return it, nil
}

func (repo *collectionRepository) DeleteItem(_ context.Context, collectionID, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if it, ok := repo.db.items[id]; !ok || it.CollectionID != collectionID {
		return collection.ErrItemNotFound
	}
	delete(repo.db.items, id)
	return nil
}
