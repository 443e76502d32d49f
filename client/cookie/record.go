package cookie

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// SessionMaxAge marks a cookie that lives until the end of the session.
const SessionMaxAge int64 = -1

// Record holds every attribute of one cookie as persisted in the backing
// document. Nil pointers are written as JSON null.
type Record struct {
	Name       string  `json:"name" validate:"required,excludesall=;="`
	Value      string  `json:"value"`
	Comment    *string `json:"comment"`
	CommentURL *string `json:"commentURL"`
	Discard    bool    `json:"discard"`
	Domain     *string `json:"domain"`
	MaxAge     int64   `json:"maxAge" validate:"gte=-1"`
	Path       *string `json:"path"`
	PortList   *string `json:"portlist"`
	Secure     bool    `json:"secure"`
	HTTPOnly   bool    `json:"httpOnly"`
	Version    int     `json:"version" validate:"oneof=0 1"`

	// created anchors MaxAge; it is not persisted, so a reloaded cookie's
	// lifetime restarts at load time.
	created time.Time
}

// UnmarshalJSON defaults Version to 1 when the field is absent and rejects
// unknown attributes.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	p := plain{Version: 1}

	d := json.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(&p); err != nil {
		return err
	}

	*r = Record(p)
	return nil
}

// clone returns r with its optional attributes copied, so the result shares
// no memory with r.
func (r Record) clone() Record {
	r.Comment = cloneString(r.Comment)
	r.CommentURL = cloneString(r.CommentURL)
	r.Domain = cloneString(r.Domain)
	r.Path = cloneString(r.Path)
	r.PortList = cloneString(r.PortList)
	return r
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// NewRecord returns a version 1 session cookie.
func NewRecord(name, value string) Record {
	return Record{
		Name:    name,
		Value:   value,
		MaxAge:  SessionMaxAge,
		Version: 1,
	}
}

// DomainOrEmpty returns the domain attribute without a leading dot, or "".
func (r Record) DomainOrEmpty() string {
	if r.Domain == nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(*r.Domain), ".")
}

// PathOrRoot returns the path attribute, "/" when unset.
func (r Record) PathOrRoot() string {
	if r.Path == nil || *r.Path == "" {
		return "/"
	}
	return *r.Path
}

// Expired reports whether a cookie with a positive MaxAge has outlived it.
func (r Record) Expired(now time.Time) bool {
	switch {
	case r.MaxAge == 0:
		return true
	case r.MaxAge < 0 || r.created.IsZero():
		return false
	default:
		return now.After(r.created.Add(time.Duration(r.MaxAge) * time.Second))
	}
}

// sameCookie reports whether a and b name the same cookie: equal name and
// domain ignoring case, equal path.
func sameCookie(a, b Record) bool {
	return strings.EqualFold(a.Name, b.Name) &&
		a.DomainOrEmpty() == b.DomainOrEmpty() &&
		a.PathOrRoot() == b.PathOrRoot()
}

// HTTPCookie converts r for sending on a request.
func (r Record) HTTPCookie() *http.Cookie {
	return &http.Cookie{
		Name:     r.Name,
		Value:    r.Value,
		Path:     r.PathOrRoot(),
		Domain:   r.DomainOrEmpty(),
		Secure:   r.Secure,
		HttpOnly: r.HTTPOnly,
	}
}

// FromHTTPCookie converts a cookie received on a response. A zero MaxAge
// with no Expires becomes a session cookie; a negative MaxAge or a past
// Expires becomes MaxAge 0, which deletes the cookie on Add.
func FromHTTPCookie(c *http.Cookie, now time.Time) Record {
	r := Record{
		Name:     c.Name,
		Value:    c.Value,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
		Version:  1,
		MaxAge:   SessionMaxAge,
	}

	switch {
	case c.MaxAge < 0:
		r.MaxAge = 0
	case c.MaxAge > 0:
		r.MaxAge = int64(c.MaxAge)
	case !c.Expires.IsZero():
		// Rounded up: a cookie with any time left must not read as deleted.
		if d := c.Expires.Sub(now); d > 0 {
			r.MaxAge = int64((d + time.Second - 1) / time.Second)
		} else {
			r.MaxAge = 0
		}
	}

	if c.Domain != "" {
		d := strings.ToLower(c.Domain)
		r.Domain = &d
	}
	if c.Path != "" {
		p := c.Path
		r.Path = &p
	}

	return r
}
