package inmemdb

import (
	"context"
	"sort"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/position"
)

type positionRepository struct {
	db *DB
}

var _ position.Repository = (*positionRepository)(nil) // interface compliance check

func NewPositionRepository(db *DB) *positionRepository {
	return &positionRepository{db: db}
}

func (repo *positionRepository) nameTaken(name, excludeID string) bool {
	for _, p := range repo.db.positions {
		if p.ID != excludeID && sameName(p.Name, name) {
			return true
		}
	}
	return false
}

func (repo *positionRepository) CheckName(_ context.Context, name, excludeID string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if repo.nameTaken(name, excludeID) {
		return position.ErrNameExists
	}
	return nil
}

func (repo *positionRepository) CreatePosition(_ context.Context, p position.Position) (position.Position, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if repo.nameTaken(p.Name, "") {
		return position.Position{}, position.ErrNameExists
	}
	p.ID = newID()
	repo.db.positions[p.ID] = p
	return p, nil
}

func (repo *positionRepository) QueryPositions(_ context.Context, activeOnly bool) ([]position.Position, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	positions := make([]position.Position, 0, len(repo.db.positions))
	for _, p := range repo.db.positions {
		if activeOnly && !p.IsActive {
			continue
		}
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Name < positions[j].Name })
	return positions, nil
}

func (repo *positionRepository) GetPosition(_ context.Context, id string) (position.Position, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if p, ok := repo.db.positions[id]; ok {
		return p, nil
	}
	return position.Position{}, position.ErrNotFound
}

func (repo *positionRepository) UpdatePosition(_ context.Context, p position.Position) (position.Position, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.positions[p.ID]; !ok {
		return position.Position{}, position.ErrNotFound
	}
	if repo.nameTaken(p.Name, p.ID) {
		return position.Position{}, position.ErrNameExists
	}
	repo.db.positions[p.ID] = p
	return p, nil
}

func (repo *positionRepository) CountHolders(_ context.Context, id string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	n := 0
	for _, u := range repo.db.users {
		if core.StringVal(u.PositionID) == id {
			n++
		}
	}
	return n, nil
}

func (repo *positionRepository) DeletePosition(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.positions[id]; !ok {
		return position.ErrNotFound
	}
	delete(repo.db.positions, id)
	return nil
}
