package devops

import (
	"net/url"
	"strings"
)

type queryParam struct {
	key   string
	value string
}

// URLBuilder accumulates route segments and query parameters for a request
// against a Source. It performs no I/O.
type URLBuilder struct {
	source            Source
	routeParts        []string
	query             []queryParam
	includeAPIVersion bool
}

// NewURLBuilder starts a request address rooted at the source's base URL.
func NewURLBuilder(source Source) *URLBuilder {
	return &URLBuilder{
		source:            source,
		includeAPIVersion: true,
	}
}

// WithProject scopes the request to a project. The project segment always
// comes first, regardless of when it is added.
func (b *URLBuilder) WithProject(project string) *URLBuilder {
	b.routeParts = append([]string{project}, b.routeParts...)
	return b
}

// WithRoute appends a route segment.
func (b *URLBuilder) WithRoute(route string) *URLBuilder {
	b.routeParts = append(b.routeParts, route)
	return b
}

// WithQueryParam appends a query parameter. Keys may repeat.
func (b *URLBuilder) WithQueryParam(key, value string) *URLBuilder {
	b.query = append(b.query, queryParam{key: key, value: value})
	return b
}

// WithoutAPIVersion omits the api-version parameter.
func (b *URLBuilder) WithoutAPIVersion() *URLBuilder {
	b.includeAPIVersion = false
	return b
}

// QueryParam returns the first value set for key. ok is false when the key
// was never set, which is distinct from an empty value.
func (b *URLBuilder) QueryParam(key string) (value string, ok bool) {
	for _, p := range b.query {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// Len is the length of the serialized address.
func (b *URLBuilder) Len() int {
	return len(b.String())
}

// String renders the full address. Query parameters keep insertion order and
// api-version is always last.
func (b *URLBuilder) String() string {
	base := b.source.BaseURL()
	u := base.ResolveReference(&url.URL{Path: strings.Join(b.routeParts, "/")})

	params := b.query
	if b.includeAPIVersion {
		params = append(params[:len(params):len(params)], queryParam{key: "api-version", value: b.source.APIVersion()})
	}

	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.value))
	}
	u.RawQuery = sb.String()

	return u.String()
}
