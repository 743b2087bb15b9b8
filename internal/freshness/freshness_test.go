package freshness

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/anydoor/anydoor/internal/fsys"
)

var (
	modTime = time.Date(2024, 3, 1, 12, 30, 45, 123456789, time.UTC)
	meta    = fsys.Metadata{IsFile: true, Size: 1024, ModTime: modTime}
	fixed   = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
)

func allOptions() Options {
	return Options{
		ETag:         true,
		LastModified: true,
		CacheControl: true,
		Expires:      true,
		MaxAge:       10 * time.Minute,
		Now:          func() time.Time { return fixed },
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	first := Evaluate(meta, Conditions{}, allOptions())
	second := Evaluate(meta, Conditions{}, allOptions())
	if first != second {
		t.Fatalf("validators differ between identical requests: %+v vs %+v", first, second)
	}
	if first.Hit {
		t.Fatalf("request without conditions must be a miss")
	}
}

func TestETagChangesWithMetadata(t *testing.T) {
	base := ETag(meta)
	grown := meta
	grown.Size++
	touched := meta
	touched.ModTime = modTime.Add(time.Nanosecond)
	if ETag(grown) == base || ETag(touched) == base {
		t.Fatalf("etag must depend on size and modtime")
	}
}

func TestEvaluateIfNoneMatch(t *testing.T) {
	etag := ETag(meta)
	testCases := []struct {
		name   string
		header string
		hit    bool
	}{
		{"exact", etag, true},
		{"weak prefix", "W/" + etag, true},
		{"in list", `"other", ` + etag, true},
		{"wildcard", "*", true},
		{"mismatch", `"nope"`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Evaluate(meta, Conditions{IfNoneMatch: tc.header}, allOptions())
			if result.Hit != tc.hit {
				t.Fatalf("expected hit=%v for %q", tc.hit, tc.header)
			}
		})
	}
}

func TestIfNoneMatchTakesPrecedence(t *testing.T) {
	cond := Conditions{
		IfNoneMatch:     `"stale"`,
		IfModifiedSince: string(fasthttp.AppendHTTPDate(nil, modTime.Add(time.Hour))),
	}
	if Evaluate(meta, cond, allOptions()).Hit {
		t.Fatalf("a mismatching If-None-Match must win over a matching If-Modified-Since")
	}
}

func TestMatchingIfNoneMatchIgnoresStaleDate(t *testing.T) {
	cond := Conditions{
		IfNoneMatch:     ETag(meta),
		IfModifiedSince: string(fasthttp.AppendHTTPDate(nil, modTime.Add(-time.Hour))),
	}
	if !Evaluate(meta, cond, allOptions()).Hit {
		t.Fatalf("a matching If-None-Match must hit even when If-Modified-Since is older than the file")
	}
}

func TestEvaluateIfModifiedSince(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		hit    bool
	}{
		{"same second", string(fasthttp.AppendHTTPDate(nil, modTime)), true},
		{"later", string(fasthttp.AppendHTTPDate(nil, modTime.Add(time.Hour))), true},
		{"earlier", string(fasthttp.AppendHTTPDate(nil, modTime.Add(-time.Hour))), false},
		{"garbage", "yesterday-ish", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Evaluate(meta, Conditions{IfModifiedSince: tc.header}, allOptions())
			if result.Hit != tc.hit {
				t.Fatalf("expected hit=%v for %q", tc.hit, tc.header)
			}
		})
	}
}

func TestDisabledValidatorsNeverMatch(t *testing.T) {
	opts := allOptions()
	opts.ETag = false
	opts.LastModified = false

	if Evaluate(meta, Conditions{IfNoneMatch: ETag(meta)}, opts).Hit {
		t.Fatalf("disabled etag must not be compared")
	}
	ims := string(fasthttp.AppendHTTPDate(nil, modTime))
	if Evaluate(meta, Conditions{IfModifiedSince: ims}, opts).Hit {
		t.Fatalf("disabled last-modified must not be compared")
	}
}

func TestApplyWritesValidators(t *testing.T) {
	var h fasthttp.ResponseHeader
	Evaluate(meta, Conditions{}, allOptions()).Apply(&h)

	if got := string(h.Peek(fasthttp.HeaderETag)); got != ETag(meta) {
		t.Fatalf("unexpected ETag %q", got)
	}
	if got := string(h.Peek(fasthttp.HeaderLastModified)); got != "Fri, 01 Mar 2024 12:30:45 GMT" {
		t.Fatalf("unexpected Last-Modified %q", got)
	}
	if got := string(h.Peek(fasthttp.HeaderCacheControl)); got != "public, max-age=600" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}
	if got := string(h.Peek(fasthttp.HeaderExpires)); got != "Sat, 02 Mar 2024 00:10:00 GMT" {
		t.Fatalf("unexpected Expires %q", got)
	}
}

func TestApplySkipsDisabledHeaders(t *testing.T) {
	var h fasthttp.ResponseHeader
	Evaluate(meta, Conditions{}, Options{}).Apply(&h)
	for _, name := range []string{fasthttp.HeaderETag, fasthttp.HeaderLastModified, fasthttp.HeaderCacheControl, fasthttp.HeaderExpires} {
		if len(h.Peek(name)) != 0 {
			t.Fatalf("%s should not be emitted when disabled", name)
		}
	}
}
