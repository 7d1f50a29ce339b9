// Package history keeps a git repository of saved snapshots per content path.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const snapshotFile = "snapshot.json"

var (
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrUnchanged is returned by Record when the snapshot equals the latest
	// revision.
	ErrUnchanged = errors.New("snapshot unchanged")
)

type Revision struct {
	Hash      string    `json:"hash"`
	FullHash  string    `json:"fullHash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{baseDir: baseDir, locks: make(map[string]*sync.Mutex)}
}

// Record commits snapshot as the newest revision of path, creating the
// repository on first use.
func (s *Service) Record(path string, snapshot json.RawMessage, author, message string) (Revision, error) {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(path)
	if err != nil {
		return Revision{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Revision{}, fmt.Errorf("open worktree: %w", err)
	}

	var pretty any
	if err := json.Unmarshal(snapshot, &pretty); err != nil {
		return Revision{}, fmt.Errorf("decode snapshot: %w", err)
	}
	payload, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return Revision{}, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), snapshotFile), append(payload, '\n'), 0o644); err != nil {
		return Revision{}, fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return Revision{}, fmt.Errorf("git add snapshot: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@cms.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return Revision{}, ErrUnchanged
	}
	if err != nil {
		return Revision{}, fmt.Errorf("commit snapshot: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj), nil
}

// History lists revisions of path, newest first. A path that was never
// recorded has no history.
func (s *Service) History(path string, limit int) ([]Revision, error) {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(path))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevision(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Snapshot returns the document stored in revision hash (short or full).
func (s *Service) Snapshot(path, hash string) (json.RawMessage, Revision, error) {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(path))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, Revision{}, ErrRevisionNotFound
	}
	if err != nil {
		return nil, Revision{}, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, Revision{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return nil, Revision{}, fmt.Errorf("%s: %w", hash, ErrRevisionNotFound)
	}
	file, err := commitObj.File(snapshotFile)
	if err != nil {
		return nil, Revision{}, fmt.Errorf("load snapshot from commit: %w", err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, Revision{}, fmt.Errorf("read snapshot: %w", err)
	}
	return json.RawMessage(contents), toRevision(commitObj), nil
}

func (s *Service) openOrInit(path string) (*git.Repository, error) {
	dir := s.repoPath(path)
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(path string) string {
	return filepath.Join(s.baseDir, strings.ReplaceAll(strings.Trim(path, "/"), "/", "_"))
}

func (s *Service) pathLock(path string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}

func toRevision(commitObj *object.Commit) Revision {
	full := commitObj.Hash.String()
	return Revision{
		Hash:      full[:7],
		FullHash:  full,
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%s: %w", hash, ErrRevisionNotFound)
	}
	return *resolved, nil
}
