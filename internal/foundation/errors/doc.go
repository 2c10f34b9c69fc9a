// Package errors provides the classified error primitives used across pagefactory.
//
// A ClassifiedError carries a category (which part of a build pass failed),
// a severity and a retry hint, plus structured context that ends up as log
// attributes. Errors are built with the fluent ErrorBuilder:
//
//	err := errors.RenderError("render failed").
//		WithContext("page", "about/index").
//		WithCause(engineErr).
//		Build()
package errors
