package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/sector"
)

type sectorRepository struct {
	db *DB
}

var _ sector.Repository = (*sectorRepository)(nil) // interface compliance check

func NewSectorRepository(db *DB) *sectorRepository {
	return &sectorRepository{db: db}
}

func dropLinks(links []adminLink, drop func(l adminLink) bool) []adminLink {
	kept := links[:0]
	for _, l := range links {
		if !drop(l) {
			kept = append(kept, l)
		}
	}
	return kept
}

func (repo *sectorRepository) sectorNameTaken(name, excludeID string) bool {
	for _, s := range repo.db.sectors {
		if s.ID != excludeID && sameName(s.Name, name) {
			return true
		}
	}
	return false
}

func (repo *sectorRepository) CheckSectorName(_ context.Context, name string, excludeID string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if repo.sectorNameTaken(name, excludeID) {
		return sector.ErrNameExists
	}
	return nil
}

func (repo *sectorRepository) CreateSector(_ context.Context, s sector.Sector) (sector.Sector, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if repo.sectorNameTaken(s.Name, "") {
		return sector.Sector{}, sector.ErrNameExists
	}
	s.ID = newID()
	repo.db.sectors[s.ID] = s
	return s, nil
}

func (repo *sectorRepository) QuerySectors(_ context.Context, filter *sector.QueryFilter) ([]sector.Sector, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sectors := make([]sector.Sector, 0, len(repo.db.sectors))
	for _, s := range repo.db.sectors {
		if filter != nil {
			if filter.Search != "" && !containsFold(s.Name, filter.Search) {
				continue
			}
			if filter.IsActive != nil && s.IsActive != *filter.IsActive {
				continue
			}
		}
		sectors = append(sectors, s)
	}
	sort.Slice(sectors, func(i, j int) bool { return sectors[i].Name < sectors[j].Name })
	return sectors, nil
}

func (repo *sectorRepository) GetSector(_ context.Context, id string) (sector.Sector, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if s, ok := repo.db.sectors[id]; ok {
		return s, nil
	}
	return sector.Sector{}, sector.ErrNotFound
}

func (repo *sectorRepository) UpdateSector(_ context.Context, s sector.Sector) (sector.Sector, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	orig, ok := repo.db.sectors[s.ID]
	if !ok {
		return sector.Sector{}, sector.ErrNotFound
	}
	if repo.sectorNameTaken(s.Name, s.ID) {
		return sector.Sector{}, sector.ErrNameExists
	}
	s.CreatedAt = orig.CreatedAt
	repo.db.sectors[s.ID] = s
	return s, nil
}

func (repo *sectorRepository) DeleteSector(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.sectors[id]; !ok {
		return sector.ErrNotFound
	}
	for _, sub := range repo.db.subsectors {
		if sub.SectorID == id {
			return core.DBError{Message: "sector still has subsectors", Code: "23503"}
		}
	}
	delete(repo.db.sectors, id)
	repo.db.sectorAdmins = dropLinks(repo.db.sectorAdmins, func(l adminLink) bool { return l.targetID == id })
	for uid, u := range repo.db.users {
		if core.StringVal(u.SectorID) == id {
			u.SectorID = nil
			repo.db.users[uid] = u
		}
	}
	for nid, n := range repo.db.news {
		if core.StringVal(n.SectorID) == id {
			delete(repo.db.news, nid)
		}
	}
	for eid, e := range repo.db.events {
		if core.StringVal(e.SectorID) == id {
			delete(repo.db.events, eid)
		}
	}
	return nil
}

// Subsectors

func (repo *sectorRepository) subsectorNameTaken(sectorID, name, excludeID string) bool {
	for _, s := range repo.db.subsectors {
		if s.SectorID == sectorID && s.ID != excludeID && sameName(s.Name, name) {
			return true
		}
	}
	return false
}

func (repo *sectorRepository) CheckSubsectorName(_ context.Context, sectorID, name string, excludeID string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if repo.subsectorNameTaken(sectorID, name, excludeID) {
		return sector.ErrSubsectorNameExists
	}
	return nil
}

func (repo *sectorRepository) CreateSubsector(_ context.Context, s sector.Subsector) (sector.Subsector, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.sectors[s.SectorID]; !ok {
		return sector.Subsector{}, sector.ErrNotFound
	}
	if repo.subsectorNameTaken(s.SectorID, s.Name, "") {
		return sector.Subsector{}, sector.ErrSubsectorNameExists
	}
	s.ID = newID()
	repo.db.subsectors[s.ID] = s
	return s, nil
}

func (repo *sectorRepository) QuerySubsectors(_ context.Context, sectorID string) ([]sector.Subsector, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]sector.Subsector, 0)
	for _, s := range repo.db.subsectors {
		if s.SectorID == sectorID {
			subs = append(subs, s)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	return subs, nil
}

func (repo *sectorRepository) CountSubsectors(_ context.Context, sectorID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	n := 0
	for _, s := range repo.db.subsectors {
		if s.SectorID == sectorID {
			n++
		}
	}
	return n, nil
}

func (repo *sectorRepository) GetSubsector(_ context.Context, id string) (sector.Subsector, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if s, ok := repo.db.subsectors[id]; ok {
		return s, nil
	}
	return sector.Subsector{}, sector.ErrSubsectorNotFound
}

func (repo *sectorRepository) UpdateSubsector(_ context.Context, s sector.Subsector) (sector.Subsector, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	orig, ok := repo.db.subsectors[s.ID]
	if !ok {
		return sector.Subsector{}, sector.ErrSubsectorNotFound
	}
	if repo.subsectorNameTaken(orig.SectorID, s.Name, s.ID) {
		return sector.Subsector{}, sector.ErrSubsectorNameExists
	}
	s.SectorID = orig.SectorID
	s.CreatedAt = orig.CreatedAt
	repo.db.subsectors[s.ID] = s
	return s, nil
}

func (repo *sectorRepository) DeleteSubsector(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.subsectors[id]; !ok {
		return sector.ErrSubsectorNotFound
	}
	delete(repo.db.subsectors, id)
	repo.db.subsectorAdmins = dropLinks(repo.db.subsectorAdmins, func(l adminLink) bool { return l.targetID == id })
	for uid, u := range repo.db.users {
		if core.StringVal(u.SubsectorID) == id {
			u.SubsectorID = nil
			repo.db.users[uid] = u
		}
	}
	return nil
}

// Admins

func addLink(links []adminLink, targetID, userID string) []adminLink {
	for _, l := range links {
		if l.targetID == targetID && l.userID == userID {
			return links
		}
	}
	return append(links, adminLink{targetID: targetID, userID: userID, createdAt: time.Now().UTC()})
}

func linkedUsers(links []adminLink, targetID string) []string {
	ids := make([]string, 0)
	for _, l := range links {
		if l.targetID == targetID {
			ids = append(ids, l.userID)
		}
	}
	return ids
}

func linkedTargets(links []adminLink, userID string) []string {
	ids := make([]string, 0)
	for _, l := range links {
		if l.userID == userID {
			ids = append(ids, l.targetID)
		}
	}
	return ids
}

func (repo *sectorRepository) AddSectorAdmin(_ context.Context, sectorID, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.sectorAdmins = addLink(repo.db.sectorAdmins, sectorID, userID)
	return nil
}

func (repo *sectorRepository) RemoveSectorAdmin(_ context.Context, sectorID, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.sectorAdmins = dropLinks(repo.db.sectorAdmins, func(l adminLink) bool {
		return l.targetID == sectorID && l.userID == userID
	})
	return nil
}

func (repo *sectorRepository) SectorAdminIDs(_ context.Context, sectorID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return linkedUsers(repo.db.sectorAdmins, sectorID), nil
}

func (repo *sectorRepository) AddSubsectorAdmin(_ context.Context, subsectorID, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.subsectorAdmins = addLink(repo.db.subsectorAdmins, subsectorID, userID)
	return nil
}

func (repo *sectorRepository) RemoveSubsectorAdmin(_ context.Context, subsectorID, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.subsectorAdmins = dropLinks(repo.db.subsectorAdmins, func(l adminLink) bool {
		return l.targetID == subsectorID && l.userID == userID
	})
	return nil
}

func (repo *sectorRepository) SubsectorAdminIDs(_ context.Context, subsectorID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return linkedUsers(repo.db.subsectorAdmins, subsectorID), nil
}

func (repo *sectorRepository) GetScope(_ context.Context, userID string) (sector.Scope, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return sector.Scope{
		SectorIDs:    linkedTargets(repo.db.sectorAdmins, userID),
		SubsectorIDs: linkedTargets(repo.db.subsectorAdmins, userID),
	}, nil
}
