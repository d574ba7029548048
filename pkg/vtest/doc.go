// Package vtest provides testing helpers for the counter packages.
//
// The vtest package reduces boilerplate when testing views, stores and
// inspectors by providing render assertions and recorders.
//
// # Render Assertions
//
// Assert on rendered HTML output:
//
//	v := view.NewCounterView(c)
//	vtest.ExpectContains(t, v.Render(), "Count: 0")
//	vtest.ExpectAttribute(t, v.Render(), "data-action", "increment")
//
// # Recording Inspector
//
// Inspector records every devtools event for later assertions:
//
//	rec := &vtest.Inspector{}
//	c := counter.New(store.WithMiddleware(devtools.Middleware[counter.State](rec)))
//	c.Increment()
//	rec.ExpectActions(t, devtools.ActionInit, "increment")
//
// # Subscription Recorder
//
// Record captures selector callbacks on a store:
//
//	calls := vtest.Record(t, c.Store(), func(s counter.State) int { return s.Count })
//	c.Increment()
//	calls.ExpectCount(t, 1)
package vtest
