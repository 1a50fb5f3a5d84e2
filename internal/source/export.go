package source

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/crossfade/internal/library"
)

//go:embed schema.cue
var exportSchema string

// LoadError describes an export directory that could not be loaded.
type LoadError struct {
	Dir     string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Dir, e.Message)
}

type exportSong struct {
	ArtistID string            `json:"artist_id"`
	Artist   string            `json:"artist"`
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Added    string            `json:"added,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type exportPlaylist struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Added    string            `json:"added,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Songs    []exportSong      `json:"songs"`
}

type exportDump struct {
	Songs     []exportSong     `json:"songs"`
	Playlists []exportPlaylist `json:"playlists"`
}

// Export is a Source that reads a CUE catalog dump from a directory. The
// directory is loaded on first use and cached.
type Export struct {
	id  string
	dir string

	mu      sync.Mutex
	catalog *catalog
}

// NewExport creates an export source for dir.
func NewExport(id, dir string) *Export {
	return &Export{id: id, dir: dir}
}

func (e *Export) ID() string { return e.id }

// Dir returns the export directory.
func (e *Export) Dir() string { return e.dir }

func (e *Export) PullSongs(ctx context.Context) ([]library.SongRecord, error) {
	c, err := e.load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.songs), nil
}

func (e *Export) PullPlaylists(ctx context.Context) ([]library.PlaylistRecord, error) {
	c, err := e.load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.playlists), nil
}

func (e *Export) IdentifySong(ctx context.Context, song library.Entity) (library.SongRecord, bool, error) {
	c, err := e.load()
	if err != nil {
		return library.SongRecord{}, false, err
	}
	rec, ok := c.identifySong(song)
	return rec, ok, nil
}

func (e *Export) IdentifyPlaylist(ctx context.Context, playlist library.Entity) (library.PlaylistRecord, bool, error) {
	c, err := e.load()
	if err != nil {
		return library.PlaylistRecord{}, false, err
	}
	rec, ok := c.identifyPlaylist(playlist)
	return rec, ok, nil
}

func (e *Export) load() (*catalog, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.catalog != nil {
		return e.catalog, nil
	}
	dump, err := loadExport(e.dir)
	if err != nil {
		return nil, err
	}
	c, err := dump.catalog(e.id)
	if err != nil {
		return nil, err
	}
	e.catalog = c
	return c, nil
}

// ValidateExport checks that dir holds a loadable export.
func ValidateExport(dir string) error {
	dump, err := loadExport(dir)
	if err != nil {
		return err
	}
	_, err = dump.catalog("")
	return err
}

// loadExport loads and validates the CUE package in dir against the export
// schema.
func loadExport(dir string) (*exportDump, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Dir: dir, Message: fmt.Sprintf("export directory not accessible: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Dir: dir, Message: "not a directory"}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(exportSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile export schema: %w", err)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Dir: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueLoadError(dir, "loading CUE files", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueLoadError(dir, "building CUE value", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(dir, "validating export", err)
	}

	var dump exportDump
	if err := unified.Decode(&dump); err != nil {
		return nil, cueLoadError(dir, "decoding export", err)
	}
	return &dump, nil
}

// cueLoadError converts a CUE error to a LoadError carrying the first
// position CUE reports.
func cueLoadError(dir, op string, err error) *LoadError {
	le := &LoadError{Dir: dir, Message: fmt.Sprintf("%s: %v", op, err)}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return le
	}
	le.Message = fmt.Sprintf("%s: %s", op, errs[0].Error())
	if positions := errors.Positions(errs[0]); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

func (d *exportDump) catalog(id string) (*catalog, error) {
	songs := make([]library.SongRecord, 0, len(d.Songs))
	for i, s := range d.Songs {
		rec, err := s.record(id)
		if err != nil {
			return nil, fmt.Errorf("songs[%d]: %w", i, err)
		}
		songs = append(songs, rec)
	}

	playlists := make([]library.PlaylistRecord, 0, len(d.Playlists))
	for i, p := range d.Playlists {
		added, err := parseAdded(p.Added)
		if err != nil {
			return nil, fmt.Errorf("playlists[%d]: %w", i, err)
		}
		rec := library.PlaylistRecord{
			Source:     id,
			PlaylistID: p.ID,
			Name:       p.Name,
			AddedAt:    added,
			Metadata:   p.Metadata,
		}
		for j, s := range p.Songs {
			song, err := s.record(id)
			if err != nil {
				return nil, fmt.Errorf("playlists[%d].songs[%d]: %w", i, j, err)
			}
			rec.Songs = append(rec.Songs, song)
		}
		playlists = append(playlists, rec)
	}
	return newCatalog(songs, playlists), nil
}

func (s exportSong) record(id string) (library.SongRecord, error) {
	added, err := parseAdded(s.Added)
	if err != nil {
		return library.SongRecord{}, err
	}
	return library.SongRecord{
		Source:     id,
		ArtistID:   s.ArtistID,
		ArtistName: s.Artist,
		SongID:     s.ID,
		Title:      s.Title,
		AddedAt:    added,
		Metadata:   s.Metadata,
	}, nil
}

// parseAdded accepts a date or an RFC 3339 timestamp. Empty means unset.
func parseAdded(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("added %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}
