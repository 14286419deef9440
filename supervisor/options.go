package supervisor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xactions-go/core/jar"
)

// EnvSessionCookie is the environment variable carrying a single auth_token
// value, used when no other cookie source is supplied.
const EnvSessionCookie = "XACTIONS_SESSION_COOKIE"

// DefaultCookiePath is the session file consulted when every other source is
// absent. "~" is expanded against the current user's home directory.
const DefaultCookiePath = "~/.xactions/cookies.json"

// Options gathers the construction-time cookie sources for a Session, in
// the same shape as a client library's constructor options object: at most
// one of these ends up populating the session's Jar, chosen by Precedence.
type Options struct {
	// Cookies, when non-nil, is applied to the jar verbatim.
	Cookies map[string]jar.Cookie
	// CookieString is a raw "name=value; name2=value2" Cookie header.
	CookieString string
	// FilePath is an explicit session file to load (jar.Load format).
	FilePath string
	// AuthToken, when set, seeds a jar with only the auth_token cookie;
	// ct0 is still absent until the first response rotates it in.
	AuthToken string
}

// ResolveJar builds a Jar from opts following the fixed precedence chain:
// explicit cookies > cookieString > filePath > authToken > env var >
// default file path > empty jar. A missing file at either FilePath or the
// default path yields an empty jar, not an error (jar.Load's own
// contract); only a read error other than not-exist, or malformed JSON,
// propagates.
func ResolveJar(opts Options) (*jar.Jar, error) {
	if len(opts.Cookies) > 0 {
		j := jar.New()
		for _, c := range opts.Cookies {
			j.Set(c)
		}
		return j, nil
	}
	if opts.CookieString != "" {
		return applyCookieString(jar.New(), opts.CookieString), nil
	}
	if opts.FilePath != "" {
		j, _, err := jar.Load(opts.FilePath)
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	if opts.AuthToken != "" {
		j := jar.New()
		j.Set(jar.Cookie{Name: "auth_token", Value: opts.AuthToken, Domain: ".x.com", Path: "/"})
		return j, nil
	}
	if env := os.Getenv(EnvSessionCookie); env != "" {
		j := jar.New()
		j.Set(jar.Cookie{Name: "auth_token", Value: env, Domain: ".x.com", Path: "/"})
		return j, nil
	}

	defaultPath := expandHome(DefaultCookiePath)
	j, _, err := jar.Load(defaultPath)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// applyCookieString parses a raw Cookie-header-shaped string ("a=1; b=2")
// into j and returns j, mirroring the format jar.ToCookieHeader produces so
// a session's outbound header can round-trip back in as a construction
// option.
func applyCookieString(j *jar.Jar, raw string) *jar.Jar {
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		j.Set(jar.Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value), Domain: ".x.com", Path: "/"})
	}
	return j
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
