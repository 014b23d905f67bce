package tls

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewCertificateReloader(t *testing.T) {
	r, _ := newTestReloader(t, "first")
	if r.GetCertificate() == nil {
		t.Fatal("certificate not loaded")
	}
	if got := leafCN(t, r); got != "first" {
		t.Errorf("CN = %q, want first", got)
	}

	cert, err := r.GetCertificateFunc()(nil)
	if err != nil || cert != r.GetCertificate() {
		t.Errorf("GetCertificateFunc() = %v, %v", cert, err)
	}
}

func TestNewCertificateReloaderErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewCertificateReloader(filepath.Join(dir, "missing.crt"), filepath.Join(dir, "missing.key"), time.Minute, discardLogger()); err == nil {
		t.Error("missing files accepted")
	}

	now := time.Now()
	certFile, keyFile := writeCert(t, dir, certSpec{cn: "old", notBefore: now.Add(-48 * time.Hour), notAfter: now.Add(-time.Hour)})
	if _, err := NewCertificateReloader(certFile, keyFile, time.Minute, discardLogger()); err == nil {
		t.Error("expired certificate accepted")
	}

	if err := os.WriteFile(certFile, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCertificateReloader(certFile, keyFile, time.Minute, discardLogger()); err == nil {
		t.Error("invalid PEM accepted")
	}
}

// touch moves both files' modification time forward so the change is
// visible regardless of filesystem timestamp resolution.
func touch(t *testing.T, files ...string) {
	t.Helper()
	later := time.Now().Add(time.Hour)
	for _, f := range files {
		if err := os.Chtimes(f, later, later); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCertificateReloader_Check(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCert(t, dir, validSpec("first"))
	r, err := NewCertificateReloader(certFile, keyFile, time.Minute, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	r.Check()
	if got := leafCN(t, r); got != "first" {
		t.Fatalf("unchanged files reloaded: CN = %q", got)
	}

	writeCert(t, dir, validSpec("second"))
	touch(t, certFile, keyFile)
	r.Check()
	if got := leafCN(t, r); got != "second" {
		t.Errorf("CN after renewal = %q, want second", got)
	}

	if err := os.WriteFile(certFile, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	touch(t, certFile)
	r.Check()
	if got := leafCN(t, r); got != "second" {
		t.Errorf("CN after failed reload = %q, want previous certificate kept", got)
	}
}

func TestCertificateReloader_Run(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCert(t, dir, validSpec("first"))
	r, err := NewCertificateReloader(certFile, keyFile, 10*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	writeCert(t, dir, validSpec("second"))
	touch(t, certFile, keyFile)

	deadline := time.Now().Add(2 * time.Second)
	for leafCN(t, r) != "second" {
		if time.Now().After(deadline) {
			t.Fatal("certificate not reloaded by Run")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCertificateReloader_ConcurrentAccess(t *testing.T) {
	r, _ := newTestReloader(t, "shared")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if r.GetCertificate() == nil {
					t.Error("nil certificate")
					return
				}
				r.Check()
			}
		}()
	}
	wg.Wait()
}
