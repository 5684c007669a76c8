/*
Package domain contains the core domain models for the chapter outline editor.

It defines the immutable chapter tree, the access paths that address chapters,
and the closed set of structural edit commands. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Node: A chapter with an opaque ID, an optional name, master layout references and children.
  - Forest: The ordered, never empty list of root chapters.
  - Path: Zero-based sibling indices addressing one chapter.
  - Command: One of InsertBefore, InsertAfter, InsertChild, Rename, Remove or AssignMaster.
  - Document: A named, revisioned forest as held by stores and sessions.
*/
package domain
