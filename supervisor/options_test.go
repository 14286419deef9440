package supervisor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xactions-go/core/jar"
	"github.com/xactions-go/core/supervisor"
)

func TestResolveJarExplicitCookiesWin(t *testing.T) {
	t.Setenv(supervisor.EnvSessionCookie, "env-token")
	opts := supervisor.Options{
		Cookies:      map[string]jar.Cookie{"auth_token": {Name: "auth_token", Value: "explicit"}},
		CookieString: "auth_token=fromstring",
		AuthToken:    "fromauthtoken",
	}
	j, err := supervisor.ResolveJar(opts)
	if err != nil {
		t.Fatalf("ResolveJar: %v", err)
	}
	if got := j.Value("auth_token"); got != "explicit" {
		t.Errorf("expected explicit cookie to win, got %q", got)
	}
}

func TestResolveJarCookieStringBeatsFilePathAndAuthToken(t *testing.T) {
	opts := supervisor.Options{
		CookieString: "auth_token=fromstring; ct0=csrf",
		FilePath:     "/nonexistent/path.json",
		AuthToken:    "fromauthtoken",
	}
	j, err := supervisor.ResolveJar(opts)
	if err != nil {
		t.Fatalf("ResolveJar: %v", err)
	}
	if got := j.Value("auth_token"); got != "fromstring" {
		t.Errorf("expected cookie string to win, got %q", got)
	}
	if got := j.Value("ct0"); got != "csrf" {
		t.Errorf("expected ct0 from cookie string, got %q", got)
	}
}

func TestResolveJarMissingExplicitFilePathYieldsEmptyJar(t *testing.T) {
	opts := supervisor.Options{FilePath: filepath.Join(t.TempDir(), "missing.json")}
	j, err := supervisor.ResolveJar(opts)
	if err != nil {
		t.Fatalf("ResolveJar: %v", err)
	}
	if j.Len() != 0 {
		t.Errorf("expected empty jar for a missing explicit FilePath, got %d cookies", j.Len())
	}
}

func TestResolveJarAuthTokenFallback(t *testing.T) {
	opts := supervisor.Options{AuthToken: "seeded-token"}
	j, err := supervisor.ResolveJar(opts)
	if err != nil {
		t.Fatalf("ResolveJar: %v", err)
	}
	if got := j.Value("auth_token"); got != "seeded-token" {
		t.Errorf("expected auth_token seeded, got %q", got)
	}
}

func TestResolveJarEnvVarFallback(t *testing.T) {
	t.Setenv(supervisor.EnvSessionCookie, "env-token")
	j, err := supervisor.ResolveJar(supervisor.Options{})
	if err != nil {
		t.Fatalf("ResolveJar: %v", err)
	}
	if got := j.Value("auth_token"); got != "env-token" {
		t.Errorf("expected auth_token from env, got %q", got)
	}
}

func TestResolveJarEmptyJarWhenNothingConfigured(t *testing.T) {
	t.Setenv(supervisor.EnvSessionCookie, "")

	home := t.TempDir()
	t.Setenv("HOME", home)

	j, err := supervisor.ResolveJar(supervisor.Options{})
	if err != nil {
		t.Fatalf("ResolveJar: %v", err)
	}
	if j.Len() != 0 {
		t.Errorf("expected empty jar, got %d cookies", j.Len())
	}
}

func TestResolveJarLoadsDefaultFileWhenPresent(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(supervisor.EnvSessionCookie, "")

	dir := filepath.Join(home, ".xactions")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	j := jar.New()
	j.Set(jar.Cookie{Name: "auth_token", Value: "from-file", Domain: ".x.com", Path: "/"})
	username := "tester"
	if err := j.Save(filepath.Join(dir, "cookies.json"), &username); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := supervisor.ResolveJar(supervisor.Options{})
	if err != nil {
		t.Fatalf("ResolveJar: %v", err)
	}
	if got := loaded.Value("auth_token"); got != "from-file" {
		t.Errorf("expected auth_token loaded from default file, got %q", got)
	}
}
