// Package cookie keeps cookies across process restarts.
//
// A [Store] is a multimap from a normalized URI to the cookies recorded
// for it, backed by a JSON document on disk:
//
//	store, err := cookie.Open("cookie.json")
//	if err != nil {
//		return err // missing file is created, an unreadable one is fatal
//	}
//	hc := &http.Client{Jar: store.Jar()}
//	// ... make requests ...
//	err = store.Save()
//
// The store itself does exact-key lookups only. Matching cookies to a
// request by domain and path is the job of the [Jar] it hands to net/http.
// Nothing is written back to disk unless [Store.Save] is called.
package cookie
