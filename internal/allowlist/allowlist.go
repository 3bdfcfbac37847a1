// Package allowlist holds the set of NFC tag claims permitted to start a
// setup handshake.
package allowlist

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

type set map[string]struct{}

// List is a membership test over permitted claims. An empty list allows
// every claim. The set is replaced wholesale on reload, so concurrent
// readers always see one consistent snapshot without locking.
type List struct {
	path string
	tags atomic.Pointer[set]

	mu    sync.Mutex // serializes writers
	fixed []string
}

// New builds a list from fixed tags only.
func New(tags []string) *List {
	l := &List{fixed: normalize(tags)}
	l.store(l.fixed)
	return l
}

// Load builds a list from fixed tags plus the tags in the file at path.
func Load(
	path string,
	tags []string,
) (
	*List,
	error,
) {
	l := &List{
		path:  path,
		fixed: normalize(tags),
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// ParseTags splits a comma separated tag list, as found in ALLOWED_TAGS.
func ParseTags(csv string) []string {
	return normalize(strings.Split(csv, ","))
}

func (l *List) Allows(claim string) bool {
	tags := *l.tags.Load()
	if len(tags) == 0 {
		return true
	}
	_, ok := tags[claim]
	return ok
}

func (l *List) Len() int {
	return len(*l.tags.Load())
}

// Tags returns the current snapshot in sorted order.
func (l *List) Tags() []string {
	tags := *l.tags.Load()
	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// Reload re-reads the backing file. On failure the previous snapshot stays
// in place.
func (l *List) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reload()
}

// Replace swaps the fixed tags and rebuilds the snapshot.
func (l *List) Replace(tags []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fixed = normalize(tags)
	return l.reload()
}

func (l *List) reload() error {
	if l.path == "" {
		l.store(l.fixed)
		return nil
	}

	fromFile, err := readTagFile(l.path)
	if err != nil {
		return err
	}
	l.store(append(slices.Clone(l.fixed), fromFile...))
	log.Printf("allowlist: loaded %d tags from %s\n", l.Len(), l.path)
	return nil
}

func (l *List) store(tags []string) {
	s := make(set, len(tags))
	for _, tag := range tags {
		s[tag] = struct{}{}
	}
	l.tags.Store(&s)
}

// readTagFile reads one tag per line. Blank lines and lines starting with
// '#' are ignored.
func readTagFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open allowlist '%s': %w", path, err)
	}
	defer file.Close()

	var tags []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tags = append(tags, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read allowlist '%s': %w", path, err)
	}
	return normalize(tags), nil
}

func normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
