//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo flags the manual Add/Done goroutine pattern; sources and the
// metrics endpoint start their goroutines with wg.Go.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done").
		Suggest("$wg.Go(func() { $body })")
}

// EnhancedErrorf flags wrapping a formatted error by hand when the internal
// errors package already offers Newf.
func EnhancedErrorf(m dsl.Matcher) {
	m.Import("github.com/tphakala/pcmring/internal/errors")

	m.Match(`errors.New(fmt.Errorf($*args))`).
		Where(m.File().PkgPath.Matches(`^github.com/tphakala/pcmring/`)).
		Report("use errors.Newf($args) instead of errors.New(fmt.Errorf(...))").
		Suggest("errors.Newf($args)")
}

// StdLog flags the standard library logger; components log through
// internal/logger so output honors log.level and log.json.
func StdLog(m dsl.Matcher) {
	m.Import("log")

	m.Match(`log.Print($*_)`, `log.Printf($*_)`, `log.Println($*_)`,
		`log.Fatal($*_)`, `log.Fatalf($*_)`, `log.Fatalln($*_)`).
		Report("use internal/logger instead of the standard log package")
}

// RingCopyInLoop flags per-byte copies out of a ring read; copy the whole
// contiguous span instead.
func RingCopyInLoop(m dsl.Matcher) {
	m.Match(`for $i := range $src { $dst[$i] = $src[$i] }`).
		Where(m["src"].Type.Is("[]byte") && m["dst"].Type.Is("[]byte")).
		Report("use copy($dst, $src) instead of a byte loop").
		Suggest("copy($dst, $src)")
}

// TimeSubNow flags time.Now().Sub(t), which reads better as time.Since(t).
func TimeSubNow(m dsl.Matcher) {
	m.Match(`time.Now().Sub($t)`).
		Report("use time.Since($t)").
		Suggest("time.Since($t)")
}
