package asset

import (
	"fmt"
	"math/rand/v2"
	"path"
	"sync"
	"time"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// Namer issues file names of the form
// {category}-{YYYYmmdd-HHMMSS}-{micro}-{1000..9999}.jpg.
// Timestamps from one Namer strictly increase.
type Namer struct {
	clock   wallpaper.Clock
	randInt func(n int) int

	mu   sync.Mutex
	last time.Time
}

// NewNamer returns a Namer reading time from clock.
func NewNamer(clock wallpaper.Clock) *Namer {
	return &Namer{clock: clock, randInt: rand.IntN}
}

// Filename returns a new file name for category.
func (n *Namer) Filename(category string) string {
	ts := n.next()
	return fmt.Sprintf("%s-%s-%06d-%d.jpg",
		category,
		ts.Format("20060102-150405"),
		ts.Nanosecond()/int(time.Microsecond),
		1000+n.randInt(9000),
	)
}

// Stamp returns the next instant in the same sequence as Filename. Processors
// take it once an asset is stored so the record time follows the store.
func (n *Namer) Stamp() time.Time {
	return n.next()
}

func (n *Namer) next() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	ts := n.clock.Now().UTC().Truncate(time.Microsecond)
	if !ts.After(n.last) {
		ts = n.last.Add(time.Microsecond)
	}
	n.last = ts
	return ts
}

// ObjectPath places a file name under its category directory.
func ObjectPath(category, filename string) string {
	return path.Join(category, filename)
}
