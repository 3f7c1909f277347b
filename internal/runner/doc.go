// Package runner provides the concurrent execution engine for issuecrank.
//
// Work is expressed as [Unit] values. [Dispatch] fans a batch of units out
// over a bounded worker pool, waits for every one of them, and returns one
// [Outcome] per unit:
//
//	outcomes := runner.Dispatch(ctx, runner.Options{Concurrency: 10}, units)
//	for _, o := range outcomes {
//		fmt.Println(o.Elapsed, o.Err)
//	}
//
// A failing or panicking unit yields a failed outcome; it never aborts the
// batch.
//
// # Pagination
//
// [Crawl] walks a paginated listing page by page and dispatches one follow-up
// unit per item, with a full barrier at the end of every page. A page is
// processed only when it has items and reports a positive record count; the
// walk continues while the server reports more pages than the current one.
// A page-fetch error aborts the crawl and is returned as a [*PageError].
// [CollectAll] uses the same walk to gather items without dispatching.
//
// # Middleware
//
// Units can be decorated:
//   - [WithLogging]: Log unit failures
//   - [WithRetry]: Bounded retry with backoff
//
// # Rate Limiting
//
// [Options.RatePerSecond] paces unit starts with a token bucket.
package runner
