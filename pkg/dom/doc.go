// Package dom is the in-memory DOM the template engine renders into.
//
// Nodes are golang.org/x/net/html nodes, so trees can be parsed from and
// serialized to HTML with the standard x/net tooling. A Document owns
// everything that the bare node type lacks: event listeners with bubbling,
// style property access, and a patch stream describing every mutation made
// under its <body>, which the preview server mirrors into a real browser.
//
// All mutations that should be observable must go through Document
// methods. Reads (GetAttribute, Children, TextContent) are plain functions
// on *html.Node.
//
// # Patches
//
// Mutations of nodes connected to the body are reported to OnPatch
// observers. Targets are addressed by their child-index path from <body>:
//
//	doc.OnPatch(func(p dom.Patch) { fmt.Println(p.Op, p.Path) })
//
// Mutations of detached nodes (for example a subtree being rendered before
// it is attached) are counted by Writes but not reported.
package dom
