// Package inmemdb implements every repository over mutex guarded maps.
// It mirrors the postgres constraints the services rely on (unique names & emails,
// unique order_index, cascades) so tests can run without a database.
package inmemdb

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cresol/portal/core/banner"
	"github.com/cresol/portal/core/collection"
	"github.com/cresol/portal/core/event"
	"github.com/cresol/portal/core/news"
	"github.com/cresol/portal/core/position"
	"github.com/cresol/portal/core/sector"
	"github.com/cresol/portal/core/systemlink"
	"github.com/cresol/portal/core/user"
	"github.com/cresol/portal/core/video"
)

type adminLink struct {
	targetID  string
	userID    string
	createdAt time.Time
}

// DB holds every table behind a single lock.
type DB struct {
	mu sync.RWMutex

	users           map[string]user.User
	positions       map[string]position.Position
	sectors         map[string]sector.Sector
	subsectors      map[string]sector.Subsector
	sectorAdmins    []adminLink
	subsectorAdmins []adminLink
	banners         map[string]banner.Banner
	videos          map[string]video.Video
	news            map[string]news.News // both sources; News.Source tells them apart
	events          map[string]event.Event
	collections     map[string]collection.Collection
	items           map[string]collection.Item
	links           map[string]systemlink.SystemLink
}

func Open() *DB {
	db := &DB{}
	db.reset()
	return db
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.users = make(map[string]user.User)
	db.positions = make(map[string]position.Position)
	db.sectors = make(map[string]sector.Sector)
	db.subsectors = make(map[string]sector.Subsector)
	db.sectorAdmins = nil
	db.subsectorAdmins = nil
	db.banners = make(map[string]banner.Banner)
	db.videos = make(map[string]video.Video)
	db.news = make(map[string]news.News)
	db.events = make(map[string]event.Event)
	db.collections = make(map[string]collection.Collection)
	db.items = make(map[string]collection.Item)
	db.links = make(map[string]systemlink.SystemLink)
}

// Repositories bundles every in-memory repository over one DB.
type Repositories struct {
	User       *userRepository
	Sector     *sectorRepository
	Banner     *bannerRepository
	Video      *videoRepository
	News       *newsRepository
	Event      *eventRepository
	Collection *collectionRepository
	Position   *positionRepository
	SystemLink *systemLinkRepository
	Stats      *statsRepository
}

func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		User:       &userRepository{db: db},
		Sector:     &sectorRepository{db: db},
		Banner:     &bannerRepository{db: db},
		Video:      &videoRepository{db: db},
		News:       &newsRepository{db: db},
		Event:      &eventRepository{db: db},
		Collection: &collectionRepository{db: db},
		Position:   &positionRepository{db: db},
		SystemLink: &systemLinkRepository{db: db},
		Stats:      &statsRepository{db: db},
	}
}

func newID() string {
	return uuid.New().String()
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// maxOrderIndex mirrors COALESCE(MAX(order_index), -1).
func maxOrderIndex(indexes []int) int {
	max := -1
	for _, idx := range indexes {
		if idx > max {
			max = idx
		}
	}
	return max
}
