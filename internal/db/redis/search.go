package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// DefaultLimit applies when a query does not set one.
const DefaultLimit = 10

// Search runs FT.SEARCH with tag/numeric term filters and optional free text.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}

	filter, err := BuildTerms(q.Terms, s.ser)
	if err != nil {
		return nil, err
	}
	queryStr := filter
	if text := strings.TrimSpace(q.Text); text != "" {
		textPart := "(" + escapeQuery(text) + ")"
		if queryStr != "" {
			queryStr += " " + textPart
		} else {
			queryStr = textPart
		}
	}
	if queryStr == "" {
		queryStr = "*"
	}

	args := BuildSearchArgs(q.Index, queryStr, q)
	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if IsRedisErr(err, "unknown index name") || IsRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, Wrap(db.OpSearch, err)
	}

	return ParseSearchResult(q.Index, raw)
}

// BuildSearchArgs renders FT.SEARCH arguments after the query string.
func BuildSearchArgs(ftIndex, queryStr string, q *db.Query) []string {
	args := []string{ftIndex, queryStr}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := max(q.Offset, 0)
	args = append(args, "LIMIT", itoa(offset), itoa(limit), "DIALECT", "2")
	return args
}

// BuildTerms translates exact-match terms into an FT.SEARCH pre-filter.
// Numeric values become [v v] ranges, everything else a tag match encoded
// with the store's serializer.
func BuildTerms(terms []db.Term, ser db.Serializer) (string, error) {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if t.Field == "" {
			return "", fmt.Errorf("term field is required")
		}
		if n, ok := numeric(t.Value); ok {
			parts = append(parts, fmt.Sprintf("@%s:[%s %s]", t.Field, n, n))
			continue
		}
		v, err := ser.Encode(t.Value)
		if err != nil {
			return "", fmt.Errorf("term %s: %w", t.Field, err)
		}
		parts = append(parts, buildTagFilter(t.Field, v))
	}
	return strings.Join(parts, " "), nil
}

func numeric(v any) (string, bool) {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	}
	return "", false
}

// --- Result parsing ---

// ParseSearchResult decodes a RESP2 FT.SEARCH reply of the form
// [total, key1, fields1, key2, fields2, ...].
func ParseSearchResult(index string, raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	hits := make([]db.Hit, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		typ, id, ok := ParseDocKey(index, key)
		if !ok {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		hits = append(hits, db.Hit{
			Type:   typ,
			ID:     id,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Hits: hits}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query helpers ---

func buildTagFilter(key, value string) string {
	escaped := tagEscaper.Replace(value)
	return fmt.Sprintf("@%s:{%s}", key, escaped)
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)
