/*
Package dsl provides a fluent builder for chapter forests.

It is meant for seeding documents and writing tests without spelling out
nested domain.NewNode calls.

Example usage:

	b := dsl.New()

	intro := b.Chapter("intro").Name("Introduction").Masters("title-page")
	intro.Chapter("scope").Name("Scope")
	intro.Chapter("audience")

	b.Chapter("appendix").Name("Appendix")

	forest, err := b.Build()
	// forest has two roots; "intro" has two children, "audience" is unnamed.
*/
package dsl
