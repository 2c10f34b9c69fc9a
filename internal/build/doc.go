// Package build runs page factory passes.
//
// A pass walks manifest → template → page. Each template source is read and
// split once; every page selected by the pass's BuildContext is injected,
// rendered, post-processed and written if its bytes changed. Failures are
// contained at the smallest level that can fail (page, then template, then
// manifest) and collected in the PassResult; the pass itself always runs
// to completion unless its context is cancelled.
package build
