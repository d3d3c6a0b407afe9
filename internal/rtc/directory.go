package rtc

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
)

// Directory maps room names to live rooms. The directory lock only guards the
// map; media engine I/O happens under each room's own lock.
type Directory struct {
	engine   media.Engine
	observer CandidateObserver
	log      *logrus.Entry

	mu    sync.Mutex
	rooms map[string]*Room
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithCandidateObserver registers fn for every server-gathered candidate.
func WithCandidateObserver(fn CandidateObserver) DirectoryOption {
	return func(d *Directory) { d.observer = fn }
}

func NewDirectory(engine media.Engine, log *logrus.Logger, opts ...DirectoryOption) *Directory {
	if engine == nil {
		panic("media engine cannot be nil for Directory")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &Directory{
		engine: engine,
		log:    log.WithField("component", "room_directory"),
		rooms:  make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetOrCreate returns the room for name, installing a new one if absent.
// Concurrent callers for the same name always get the same instance.
func (d *Directory) GetOrCreate(name string) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.rooms[name]; ok {
		return r
	}
	r := newRoom(name, d.engine, d.observer, d.log)
	d.rooms[name] = r
	d.log.WithField("room_name", name).Debug("Room created")
	return r
}

func (d *Directory) Get(name string) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[name]
	return r, ok
}

// Remove detaches room and releases whatever it still holds. It only removes
// the exact instance given, so a stale caller cannot evict a successor room
// with the same name. A second call returns false.
func (d *Directory) Remove(ctx context.Context, room *Room) bool {
	d.mu.Lock()
	current, ok := d.rooms[room.Name()]
	if !ok || current != room {
		d.mu.Unlock()
		return false
	}
	delete(d.rooms, room.Name())
	d.mu.Unlock()

	room.close(ctx)
	d.log.WithField("room_name", room.Name()).Info("Room removed")
	return true
}

// Rooms returns the names of live rooms, sorted.
func (d *Directory) Rooms() []string {
	d.mu.Lock()
	names := make([]string, 0, len(d.rooms))
	for name := range d.rooms {
		names = append(names, name)
	}
	d.mu.Unlock()
	sort.Strings(names)
	return names
}

func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

// ParticipantCount sums participants across live rooms.
func (d *Directory) ParticipantCount() int {
	d.mu.Lock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	d.mu.Unlock()

	n := 0
	for _, r := range rooms {
		n += r.Len()
	}
	return n
}

// Close empties the directory and tears every room down in parallel.
func (d *Directory) Close(ctx context.Context) error {
	d.mu.Lock()
	rooms := d.rooms
	d.rooms = make(map[string]*Room)
	d.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range rooms {
		r := r
		g.Go(func() error {
			r.close(gctx)
			return nil
		})
	}
	err := g.Wait()
	d.log.WithField("rooms", len(rooms)).Info("Room directory closed")
	return err
}
