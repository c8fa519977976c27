// Package extract decodes file bytes into indexable UTF-8 text.
//
// It is polymorphic over a small set of variants — plain text, lightweight
// markup, document containers, and portable documents — dispatched by
// lowercase file extension. Unknown extensions fall back to the plain-text
// variant. No variant panics: failures are always returned as a
// *cerrors.Error of kind ExtractionFailed, carrying the original cause.
package extract
