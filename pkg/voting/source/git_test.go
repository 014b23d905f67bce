package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"mercator-hq/ldatranslate/pkg/config"
)

// createTestRepo initializes a repository with one definition file and a README.
func createTestRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	writeFile(t, filepath.Join(dir, "votings", "base.yaml"), baseDoc)
	writeFile(t, filepath.Join(dir, "README.md"), "definitions\n")
	commitAll(t, repo, "initial commit")
	return repo
}

func commitAll(t *testing.T, repo *gogit.Repository, msg string) {
	t.Helper()

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		t.Fatalf("failed to add files: %v", err)
	}
	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func testGitConfig(t *testing.T, remote string) *config.GitConfig {
	return &config.GitConfig{
		Repository: remote,
		Branch:     "master", // go-git init creates "master"
		Path:       "votings",
		Auth:       config.GitAuthConfig{Type: AuthNone},
		Poll:       config.GitPollConfig{Enabled: true, Interval: time.Hour, Timeout: 10 * time.Second},
		Clone:      config.GitCloneConfig{LocalPath: t.TempDir()},
	}
}

func TestNewRepositoryValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.GitConfig
	}{
		{"nil config", nil},
		{"no repository", &config.GitConfig{Branch: "main"}},
		{"no branch", &config.GitConfig{Repository: "https://example.com/r.git"}},
		{"bad auth", &config.GitConfig{Repository: "https://example.com/r.git", Branch: "main", Auth: config.GitAuthConfig{Type: "kerberos"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRepository(tt.cfg); err == nil {
				t.Error("NewRepository() should fail")
			}
		})
	}
}

func TestGitSourceLoadAndPoll(t *testing.T) {
	remoteDir := t.TempDir()
	remote := createTestRepo(t, remoteDir)

	src, err := NewGitSource(testGitConfig(t, remoteDir), nil)
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}
	ctx := context.Background()

	reg, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := reg.Names(); !slices.Equal(got, []string{"Base"}) {
		t.Errorf("Names() = %v, want [Base]", got)
	}
	head, err := src.Repository().Head()
	if err != nil || head.Message != "initial commit" {
		t.Errorf("Head() = %v, %v", head, err)
	}

	reloads := 0
	onChange := func() error { reloads++; return nil }

	// Nothing new upstream.
	if err := src.poll(ctx, onChange); err != nil {
		t.Fatalf("poll() error = %v", err)
	}

	// A README change must not reload.
	writeFile(t, filepath.Join(remoteDir, "README.md"), "changed\n")
	commitAll(t, remote, "docs")
	if err := src.poll(ctx, onChange); err != nil {
		t.Fatalf("poll() error = %v", err)
	}
	if reloads != 0 {
		t.Errorf("reloads = %d after non-definition change, want 0", reloads)
	}

	writeFile(t, filepath.Join(remoteDir, "votings", "derived.yaml"), derivedDoc)
	commitAll(t, remote, "add Doubled")
	if err := src.poll(ctx, onChange); err != nil {
		t.Fatalf("poll() error = %v", err)
	}
	if reloads != 1 {
		t.Errorf("reloads = %d after definition change, want 1", reloads)
	}

	reg, err = src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after pull error = %v", err)
	}
	if got := reg.Names(); !slices.Equal(got, []string{"Base", "Doubled", "doubled"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestRepositoryPullBeforeClone(t *testing.T) {
	repo, err := NewRepository(testGitConfig(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Pull(context.Background()); !errors.Is(err, ErrNotCloned) {
		t.Errorf("Pull() error = %v, want ErrNotCloned", err)
	}
}

func TestRepositoryCloneMissingRemote(t *testing.T) {
	repo, err := NewRepository(testGitConfig(t, filepath.Join(t.TempDir(), "missing")))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Clone(context.Background()); err == nil {
		t.Error("Clone() of a missing repository should fail")
	}
}

func TestGitAuth(t *testing.T) {
	if auth, err := gitAuth(&config.GitAuthConfig{Type: AuthNone}); err != nil || auth != nil {
		t.Errorf("none: %v, %v", auth, err)
	}

	auth, err := gitAuth(&config.GitAuthConfig{Type: AuthToken, Token: "secret"})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if basic, ok := auth.(*http.BasicAuth); !ok || basic.Password != "secret" {
		t.Errorf("token auth = %#v", auth)
	}

	if _, err := gitAuth(&config.GitAuthConfig{Type: AuthToken}); err == nil {
		t.Error("empty token should fail")
	}

	key := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(key, []byte("key"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := gitAuth(&config.GitAuthConfig{Type: AuthSSH, SSHKeyPath: key}); err == nil {
		t.Error("world-readable key should fail")
	}

	if _, err := gitAuth(&config.GitAuthConfig{Type: "kerberos"}); err == nil {
		t.Error("unknown type should fail")
	}
}

func TestTouchesDefinitions(t *testing.T) {
	s := &GitSource{config: &config.GitConfig{Path: "votings"}}
	tests := []struct {
		files []string
		want  bool
	}{
		{[]string{"README.md"}, false},
		{[]string{"votings/a.yaml"}, true},
		{[]string{"other/a.yaml"}, false},
		{[]string{"votings/.a.yaml"}, false},
		{[]string{"README.md", "votings/sub/b.yml"}, true},
	}
	for _, tt := range tests {
		if got := s.touchesDefinitions(tt.files); got != tt.want {
			t.Errorf("touchesDefinitions(%v) = %v, want %v", tt.files, got, tt.want)
		}
	}
}
