package postgrest

import (
	"net/url"
	"strconv"
	"strings"
)

// Query holds PostgREST query-string parameters (select, filters, order,
// limit). Builder methods mutate and return the receiver.
type Query struct {
	url.Values
}

// NewQuery returns an empty Query.
func NewQuery() Query {
	return Query{Values: url.Values{}}
}

// Select restricts the returned columns.
func (q Query) Select(cols ...string) Query {
	q.Set("select", strings.Join(cols, ","))
	return q
}

// Eq adds a col=eq.val filter.
func (q Query) Eq(col, val string) Query {
	q.Add(col, "eq."+val)
	return q
}

// Or sets an or=(cond,cond,...) filter. Build conditions with EqCond.
func (q Query) Or(conds ...string) Query {
	q.Set("or", "("+strings.Join(conds, ",")+")")
	return q
}

// Order sorts by col, descending when desc is set.
func (q Query) Order(col string, desc bool) Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.Set("order", col+"."+dir)
	return q
}

// Limit caps the number of rows returned.
func (q Query) Limit(n int) Query {
	if n > 0 {
		q.Set("limit", strconv.Itoa(n))
	}
	return q
}

func (q Query) clone() Query {
	out := NewQuery()
	for k, v := range q.Values {
		out.Values[k] = append([]string(nil), v...)
	}
	return out
}

// EqCond renders col.eq."val" for use inside Or. The value is always
// double-quoted so URLs with reserved characters survive.
func EqCond(col, val string) string {
	return col + ".eq." + Quote(val)
}

// Quote wraps v in double quotes, escaping backslashes and quotes.
func Quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
