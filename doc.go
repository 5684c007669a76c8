/*
Package chaptree edits the chapter outline of a multi-screen interactive program.

An outline is an ordered forest of chapters. Each chapter has an opaque id, an
optional name, a list of layout-master references and ordered children. The
outline is edited through structural commands addressed by positional path
(insert before, insert after, wrap-insert as child, rename, remove, assign a
master), and laid out as boxes whose width follows the number of leaves below
them.

# Concept

Every forest is immutable. Applying a command returns a new forest that shares
every untouched subtree with the previous one, so older snapshots stay valid
and readers never observe a partial edit. A rejected command (bad path, or an
attempt to remove the only root) leaves the snapshot as it was and reports why.

# Usage

Use an Editor when the process owns the document:

	ctx := context.Background()
	ed := chaptree.NewEditor(ctx, "my-program")

	if _, err := ed.Dispatch(ctx, domain.InsertChild{Path: domain.Path{0}}); err != nil {
		log.Fatal(err)
	}
	if _, err := ed.Dispatch(ctx, domain.Rename{Path: domain.Path{0, 0}, Name: "Intro"}); err != nil {
		log.Fatal(err)
	}

	fmt.Print(chaptree.Outline(ed.Forest()))
	boxes := ed.Layout(layout.DefaultConfig())

Use the stateless Engine when documents live elsewhere (see pkg/session):

	eng := chaptree.New(chaptree.WithLogger(logger))
	doc := eng.Start(ctx, "my-program")
	doc, err := eng.Apply(ctx, doc, domain.InsertAfter{Path: domain.Path{0}})

Commands can also be decoded from JSON envelopes or text lines with pkg/schema.
*/
package chaptree
