package lstore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/dorea/lib/db"
	"github.com/ValentinKolb/dorea/lib/db/engines/lru"
	"github.com/ValentinKolb/dorea/lib/store"
)

const (
	// FileExt is the extension of group files
	FileExt = ".db"

	headerPrefix = "Dorea::"
)

// Group is a named key space with its own bounded index and backing file
type Group struct {
	name   string
	index  db.KVDB
	path   string
	dirty  bool
	locked bool
}

// GroupInfo is a snapshot of the state of a loaded group
type GroupInfo struct {
	Name     string `json:"name"`
	Len      int    `json:"len"`
	Capacity int    `json:"capacity"`
	Locked   bool   `json:"locked"`
	Dirty    bool   `json:"dirty"`
}

func (gi GroupInfo) String() string {
	s := fmt.Sprintf("%s:%d/%d", gi.Name, gi.Len, gi.Capacity)
	if gi.Locked {
		s += ":locked"
	}
	return s
}

// header returns the first line of the group file
func header(name string) string {
	return fmt.Sprintf("%s%s %d\n", headerPrefix, name, lru.FormatVersion)
}

// validGroupName rejects names that cannot be used as a file name
func validGroupName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\ \t\r\n\x00")
}

func newGroup(root, name string, index db.KVDB) *Group {
	return &Group{
		name:  name,
		index: index,
		path:  filepath.Join(root, name+FileExt),
	}
}

// load reads the backing file into the index. A missing file yields an
// empty group that is marked dirty, so the file is created on the next flush.
func (g *Group) load() error {
	f, err := os.Open(g.path)
	if os.IsNotExist(err) {
		g.dirty = true
		return nil
	}
	if err != nil {
		return store.Errorf(store.RetCStorageIO, "open group file %s: %v", g.path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return store.Errorf(store.RetCStorageIO, "read header of %s: %v", g.path, err)
	}
	if line != header(g.name) {
		return store.Errorf(store.RetCStorageIO, "invalid header in %s: %q", g.path, strings.TrimSpace(line))
	}

	if err := g.index.Load(br); err != nil {
		return store.Errorf(store.RetCStorageIO, "load group %s: %v", g.name, err)
	}
	return nil
}

// flush writes the group to a temporary file and renames it over the
// backing file. The dirty flag is cleared only on success.
func (g *Group) flush() error {
	g.index.PurgeExpired()

	tmp := g.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return store.Errorf(store.RetCStorageIO, "create %s: %v", tmp, err)
	}

	writeErr := func() error {
		if _, err := io.WriteString(f, header(g.name)); err != nil {
			return err
		}
		if err := g.index.Save(f); err != nil {
			return err
		}
		return f.Sync()
	}()
	closeErr := f.Close()

	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return store.Errorf(store.RetCStorageIO, "write %s: %v", tmp, writeErr)
	}

	if err := os.Rename(tmp, g.path); err != nil {
		os.Remove(tmp)
		return store.Errorf(store.RetCStorageIO, "rename %s: %v", tmp, err)
	}

	g.dirty = false
	return nil
}

func (g *Group) info() GroupInfo {
	return GroupInfo{
		Name:     g.name,
		Len:      g.index.Len(),
		Capacity: g.index.Capacity(),
		Locked:   g.locked,
		Dirty:    g.dirty,
	}
}
