package metadata

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/patrickmn/go-cache"

	derrors "git.home.luguber.info/inful/docexport/internal/errors"
	"git.home.luguber.info/inful/docexport/internal/site"
)

var errStop = errors.New("stop iteration")

type commitTime struct {
	when  time.Time
	found bool
}

// GitProvenance takes the date of the latest commit touching a page's
// source file. Lookups are memoized per path for the life of the value.
type GitProvenance struct {
	repo   *git.Repository
	prefix string
	memo   *cache.Cache
}

// NewGitProvenance opens the repository containing sourceRoot. Page source
// paths are taken relative to sourceRoot.
func NewGitProvenance(sourceRoot string) (*GitProvenance, error) {
	abs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryProvenance, derrors.SeverityWarning, "open source repository").
			WithContext("source_root", sourceRoot)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryProvenance, derrors.SeverityWarning, "open worktree").
			WithContext("source_root", sourceRoot)
	}

	prefix, err := relativeTo(wt.Filesystem.Root(), abs)
	if err != nil {
		return nil, err
	}
	return &GitProvenance{
		repo:   repo,
		prefix: prefix,
		memo:   cache.New(cache.NoExpiration, 0),
	}, nil
}

func relativeTo(root, dir string) (string, error) {
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	if d, err := filepath.EvalSymlinks(dir); err == nil {
		dir = d
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", fmt.Errorf("source root outside repository: %w", err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

func (g *GitProvenance) LastUpdated(ctx context.Context, p *site.Page) (time.Time, bool, error) {
	if p.SourcePath == "" {
		return time.Time{}, false, nil
	}
	file := path.Clean(strings.TrimPrefix(filepath.ToSlash(p.SourcePath), "/"))
	if g.prefix != "" {
		file = path.Join(g.prefix, file)
	}

	if v, ok := g.memo.Get(file); ok {
		ct := v.(commitTime)
		return ct.when, ct.found, nil
	}
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}

	ct, err := g.lookup(file)
	if err != nil {
		return time.Time{}, false, derrors.Wrap(err, derrors.CategoryProvenance, derrors.SeverityWarning, "git log").
			WithContext("file", file)
	}
	g.memo.Set(file, ct, cache.NoExpiration)
	return ct.when, ct.found, nil
}

func (g *GitProvenance) lookup(file string) (commitTime, error) {
	iter, err := g.repo.Log(&git.LogOptions{FileName: &file})
	if err != nil {
		return commitTime{}, err
	}
	defer iter.Close()

	var ct commitTime
	err = iter.ForEach(func(c *object.Commit) error {
		ct = commitTime{when: c.Author.When, found: true}
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return commitTime{}, err
	}
	return ct, nil
}
