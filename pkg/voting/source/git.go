package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"mercator-hq/ldatranslate/pkg/config"
	"mercator-hq/ldatranslate/pkg/voting/registry"
)

// Commit identifies the checked out revision.
type Commit struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// PullResult describes what a pull brought in.
type PullResult struct {
	FromSHA      string
	ToSHA        string
	ChangedFiles []string
	HadChanges   bool
}

// Repository is a local clone of a definition repository.
type Repository struct {
	config    *config.GitConfig
	localPath string
	auth      transport.AuthMethod

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewRepository validates cfg and resolves its credentials. Nothing is
// fetched until Clone.
func NewRepository(cfg *config.GitConfig) (*Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}

	auth, err := gitAuth(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	localPath := cfg.Clone.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "ldatranslate-votings")
	}

	return &Repository{config: cfg, localPath: localPath, auth: auth}, nil
}

// Clone opens an existing clone at the local path or clones the remote.
// With CleanOnStart any existing clone is removed first.
func (r *Repository) Clone(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Clone.CleanOnStart {
		if err := os.RemoveAll(r.localPath); err != nil {
			return fmt.Errorf("failed to clean existing repository: %w", err)
		}
	}

	if _, err := os.Stat(filepath.Join(r.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		r.repo = repo
		return nil
	}

	if err := os.MkdirAll(r.localPath, 0o755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(ctx, r.localPath, false, &gogit.CloneOptions{
		URL:           r.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  r.config.Clone.Depth > 0,
		Depth:         r.config.Clone.Depth,
		Auth:          r.auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	r.repo = repo
	return nil
}

// Pull fast-forwards the clone and reports the files that changed.
func (r *Repository) Pull(ctx context.Context) (*PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return nil, ErrNotCloned
	}

	from, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		Auth:          r.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	to, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get new HEAD: %w", err)
	}

	result := &PullResult{
		FromSHA:    from.Hash().String(),
		ToSHA:      to.Hash().String(),
		HadChanges: from.Hash() != to.Hash(),
	}
	if result.HadChanges {
		files, err := r.changedFiles(from.Hash(), to.Hash())
		if err != nil {
			return nil, fmt.Errorf("failed to get changed files: %w", err)
		}
		result.ChangedFiles = files
	}
	return result, nil
}

// Head returns the checked out commit.
func (r *Repository) Head() (*Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return nil, ErrNotCloned
	}
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &Commit{
		SHA:       c.Hash.String(),
		Author:    c.Author.Name,
		Timestamp: c.Author.When,
		Message:   c.Message,
	}, nil
}

// DefinitionPath is the directory holding definition files in the clone.
func (r *Repository) DefinitionPath() string {
	return filepath.Join(r.localPath, r.config.Path)
}

func (r *Repository) changedFiles(fromHash, toHash plumbing.Hash) ([]string, error) {
	from, err := r.repo.CommitObject(fromHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get from commit: %w", err)
	}
	to, err := r.repo.CommitObject(toHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get to commit: %w", err)
	}
	fromTree, err := from.Tree()
	if err != nil {
		return nil, err
	}
	toTree, err := to.Tree()
	if err != nil {
		return nil, err
	}
	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	files := make([]string, 0, len(changes))
	for _, change := range changes {
		if change.To.Name != "" {
			files = append(files, change.To.Name)
		} else {
			files = append(files, change.From.Name)
		}
	}
	return files, nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.Poll.Timeout > 0 {
		return context.WithTimeout(ctx, r.config.Poll.Timeout)
	}
	return context.WithCancel(ctx)
}

// GitSource loads definitions from a path inside a Git repository and
// polls the remote for new commits.
type GitSource struct {
	repo   *Repository
	config *config.GitConfig
	logger *slog.Logger

	cloneOnce sync.Once
	cloneErr  error
}

// NewGitSource creates a Git-backed source. The repository is cloned on
// the first Load.
func NewGitSource(cfg *config.GitConfig, logger *slog.Logger) (*GitSource, error) {
	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitSource{
		repo:   repo,
		config: cfg,
		logger: logger.With("component", "voting.source.git"),
	}, nil
}

// Repository exposes the underlying clone.
func (s *GitSource) Repository() *Repository {
	return s.repo
}

// Load clones on first use and reads the definition path into a fresh registry.
func (s *GitSource) Load(ctx context.Context) (*registry.Registry, error) {
	s.cloneOnce.Do(func() {
		s.cloneErr = s.repo.Clone(ctx)
	})
	if s.cloneErr != nil {
		return nil, s.cloneErr
	}

	reg, err := NewFileSource(s.repo.DefinitionPath(), s.logger).Load(ctx)
	if err != nil {
		return nil, err
	}
	if head, err := s.repo.Head(); err == nil {
		s.logger.Info("loaded votings from repository",
			"repository", s.config.Repository,
			"commit", shortSHA(head.SHA),
			"votings", reg.Len(),
		)
	}
	return reg, nil
}

// Watch polls the remote until ctx is cancelled, calling onChange when a
// pull brings in changed definition files. With polling disabled it only
// waits for cancellation.
func (s *GitSource) Watch(ctx context.Context, onChange func() error) error {
	if !s.config.Poll.Enabled || s.config.Poll.Interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.config.Poll.Interval)
	defer ticker.Stop()

	s.logger.Info("git poller started", "interval", s.config.Poll.Interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("git poller stopped")
			return nil
		case <-ticker.C:
			if err := s.poll(ctx, onChange); err != nil {
				s.logger.Error("error checking for changes", "error", err)
			}
		}
	}
}

func (s *GitSource) poll(ctx context.Context, onChange func() error) error {
	result, err := s.repo.Pull(ctx)
	if err != nil {
		return err
	}
	if !result.HadChanges {
		return nil
	}
	if !s.touchesDefinitions(result.ChangedFiles) {
		s.logger.Info("non-definition files changed, skipping reload",
			"to_sha", shortSHA(result.ToSHA))
		return nil
	}

	s.logger.Info("definitions changed",
		"from_sha", shortSHA(result.FromSHA),
		"to_sha", shortSHA(result.ToSHA),
		"changed_files", len(result.ChangedFiles),
	)
	return onChange()
}

func (s *GitSource) touchesDefinitions(files []string) bool {
	prefix := filepath.ToSlash(filepath.Clean(s.config.Path))
	for _, f := range files {
		if prefix != "." && prefix != "" && !strings.HasPrefix(f, prefix+"/") {
			continue
		}
		if !isHidden(f) && hasExtension(f, Extensions) {
			return true
		}
	}
	return false
}

// String describes the source for logs.
func (s *GitSource) String() string {
	return fmt.Sprintf("git:%s@%s/%s", s.config.Repository, s.config.Branch, s.config.Path)
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
