package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/mandapcloud/venuesearch/internal/db"
	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
)

// Compile-time check: Engine implements db.Engine.
var _ db.Engine = (*Engine)(nil)

// IndexName is the FT index over venue hashes.
const IndexName = "idx:venues"

// Engine is the RediSearch-backed venue search engine store.
type Engine struct {
	*client
	keyPrefix string
}

// NewEngine creates an engine store. keyPrefix defaults to "venue:".
func NewEngine(cfg Config, keyPrefix string) (*Engine, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if keyPrefix == "" {
		keyPrefix = "venue:"
	}
	return &Engine{client: c, keyPrefix: keyPrefix}, nil
}

// EnsureIndex creates the venue FT index if absent.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	args := []string{
		IndexName,
		"ON", "HASH",
		"PREFIX", "1", e.keyPrefix,
		"SCHEMA",
		"name", "TEXT",
		"description", "TEXT",
		"city", "TAG",
		"state", "TAG",
		"amenities", "TAG", "SEPARATOR", ",",
		"capacity", "NUMERIC", "SORTABLE",
		"price", "NUMERIC", "SORTABLE",
		"rating", "NUMERIC",
		"created_at", "NUMERIC", "SORTABLE",
	}

	cmd := e.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := e.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// UpsertDocuments writes venue hashes in a single DoMulti round-trip,
// counting per-item failures. The returned error is non-nil only when every
// item in a non-empty batch failed, which indicates the engine itself was
// unreachable rather than individual documents being bad.
func (e *Engine) UpsertDocuments(ctx context.Context, items []db.DocumentItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmd := e.b().Hset().Key(e.keyPrefix + item.ID).FieldValue()
		for k, v := range item.Fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmds[i] = cmd.Build()
	}

	failed := 0
	var firstErr error
	for _, res := range e.rc.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if failed == len(items) {
		return failed, &db.Error{Op: db.OpHSet, Err: firstErr}
	}
	return failed, nil
}

// Search runs a translated venue query via FT.SEARCH.
func (e *Engine) Search(ctx context.Context, q *db.EngineQuery) (*db.SearchPage, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	args := []string{IndexName, BuildQuery(q)}
	args = append(args, "SORTBY", sortField(q.SortBy), strings.ToUpper(string(q.SortDir)))
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := e.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := e.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchPage(raw)
}

// BuildQuery translates an EngineQuery into an FT.SEARCH query string.
// There is deliberately no date clause: the engine has no availability model,
// and date-filtered queries are served by the relational fallback instead.
func BuildQuery(q *db.EngineQuery) string {
	var parts []string

	if q.City != "" {
		parts = append(parts, buildTagFilter("city", q.City))
	}
	for _, a := range q.Amenities {
		parts = append(parts, buildTagFilter("amenities", a))
	}
	if q.MinGuests != nil {
		parts = append(parts, fmt.Sprintf("@capacity:[%d +inf]", *q.MinGuests))
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		minBound, maxBound := "-inf", "+inf"
		if q.MinPrice != nil {
			minBound = strconv.Itoa(*q.MinPrice)
		}
		if q.MaxPrice != nil {
			maxBound = strconv.Itoa(*q.MaxPrice)
		}
		parts = append(parts, fmt.Sprintf("@price:[%s %s]", minBound, maxBound))
	}
	if q.Text != "" {
		parts = append(parts, fmt.Sprintf("@name|description:(%s)", escapeQuery(q.Text)))
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func sortField(s query.Sort) string {
	switch s {
	case query.SortPrice:
		return "price"
	case query.SortCapacity:
		return "capacity"
	default:
		return "created_at"
	}
}

// parseSearchPage parses the RESP2 FT.SEARCH reply.
// 2-stride: [total, key1, fields1, key2, fields2, ...]
func parseSearchPage(raw []rueidis.RedisMessage) (*db.SearchPage, error) {
	if len(raw) == 0 {
		return &db.SearchPage{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchPage{Total: 0}, nil
	}

	hits := make([]db.SearchHit, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		hits = append(hits, db.SearchHit{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchPage{Total: int(total), Hits: hits}, nil
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

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

// tagEscaper escapes TAG filter values for the FT query syntax.
var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
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

// queryEscaper escapes free-text terms for the FT query syntax.
var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`[`, `\[`,
	`]`, `\]`,
	`|`, `\|`,
	`@`, `\@`,
	`:`, `\:`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
)
