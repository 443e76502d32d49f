package cookie

import (
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Jar is the cookie policy net/http consults on every request and
// response. It accepts every cookie whose domain attribute matches the
// responding host, and hands out the stored cookies matching a request by
// domain, path, port and scheme.
type Jar struct {
	store *Store
}

var _ http.CookieJar = (*Jar)(nil)

// Jar returns the http.CookieJar view of s.
func (s *Store) Jar() *Jar {
	return &Jar{store: s}
}

// EffectiveURI is the key cookies received from u are stored under:
// the host alone, lower-cased, with an http scheme.
func EffectiveURI(u *url.URL) string {
	return "http://" + strings.ToLower(u.Hostname())
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return
	}

	now := j.store.now()
	key := EffectiveURI(u)

	for _, c := range cookies {
		rec := FromHTTPCookie(c, now)

		if d := rec.DomainOrEmpty(); d != "" {
			if !domainMatch(host, d) {
				j.store.logger.Debug("rejected cookie for foreign domain", "cookie", c.Name, "domain", d, "host", host)
				continue
			}
		} else {
			rec.Domain = &host
		}

		if rec.Path == nil {
			p := defaultPath(u.Path)
			rec.Path = &p
		}

		if err := j.store.Add(key, rec); err != nil {
			j.store.logger.Debug("rejected cookie", "cookie", c.Name, "error", err)
		}
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil
	}

	reqPath := u.EscapedPath()
	if reqPath == "" {
		reqPath = "/"
	}
	https := u.Scheme == "https"
	port := u.Port()
	if port == "" {
		port = "80"
		if https {
			port = "443"
		}
	}

	var matched []Record
	j.store.each(j.store.now(), func(uri string, rec Record) {
		domain := rec.DomainOrEmpty()
		if domain == "" {
			domain = indexHost(uri)
		}

		switch {
		case !domainMatch(host, domain):
		case !pathMatch(reqPath, rec.PathOrRoot()):
		case rec.Secure && !https:
		case !portMatch(port, rec.PortList):
		default:
			for _, m := range matched {
				if sameCookie(m, rec) {
					return
				}
			}
			matched = append(matched, rec)
		}
	})

	// More specific paths first.
	slices.SortStableFunc(matched, func(a, b Record) int {
		return len(b.PathOrRoot()) - len(a.PathOrRoot())
	})

	out := make([]*http.Cookie, 0, len(matched))
	for _, rec := range matched {
		out = append(out, &http.Cookie{Name: rec.Name, Value: rec.Value})
	}

	return out
}

func indexHost(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func domainMatch(host, domain string) bool {
	if host == domain {
		return true
	}
	if net.ParseIP(host) != nil {
		return false
	}
	return strings.HasSuffix(host, "."+domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

func portMatch(port string, portList *string) bool {
	if portList == nil || *portList == "" {
		return true
	}
	for p := range strings.SplitSeq(*portList, ",") {
		if strings.TrimSpace(p) == port {
			return true
		}
	}
	return false
}

// defaultPath is the directory of the request path.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}
