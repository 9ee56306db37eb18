// Package clinreview selects the clinically relevant subset of a FHIR
// bundle and derives a ranked list of actionable review items.
//
// The engine is a pure transformation: a resource bundle goes in, a
// scored SelectionResult and an ordered []ReviewItem come out. It
// performs no I/O, keeps no state between calls, and never mutates its
// input, so concurrent callers need no coordination.
//
// # Quick Start
//
//	import (
//	    cr "github.com/gofhir/clinreview"
//	    "github.com/gofhir/clinreview/engine"
//	)
//
//	eng, err := engine.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := eng.Process(ctx, bundleJSON, time.Now())
//	if err != nil {
//	    log.Fatal(err) // only fatal case: bundle has no Patient
//	}
//	for _, item := range report.Items {
//	    fmt.Println(item.Severity, item.Title)
//	}
//
// # Pipeline
//
// Processing runs in two synchronous stages:
//
//   - Selection: deduplicate lab observations by recency, normalize
//     units, flag abnormal values, and score medications, conditions
//     and encounters for relevance (package selector)
//   - Review: emit review items for abnormal labs, significant deltas,
//     drug interactions and duplicates, adherence risks and
//     preventive-care gaps (package analyzer)
//
// Both stages read static reference data from package tables and accept
// alternate tables for testing. The "current time" used by every
// recency and staleness rule is an explicit parameter, never a global
// clock read, so repeated runs over the same bundle are byte-for-byte
// reproducible apart from the non-semantic processing-time stat.
//
// # Functional Options
//
//	eng, err := engine.New(
//	    cr.WithParallelAnalyzers(true),
//	    cr.WithEncounterLimit(5),
//	    cr.WithDeltaThresholds(30, 50),
//	)
//
// # Error Handling
//
// The only fatal condition is a bundle without a Patient resource
// (ErrNoPatient). Every other data-quality problem is tolerated by
// excluding the offending resource; ProcessingStats counters let
// callers observe how much was excluded.
package clinreview
