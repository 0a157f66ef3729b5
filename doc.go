// Package inlay is the composition root for inlay, a content store for block
// documents.
//
// Entries (blog posts, case studies, ebooks, courses and pages) carry their
// body as an Editor.js-style block document. Saving an entry renders the
// blocks to HTML once, so the public site serves stored HTML and the admin
// panel edits the blocks. Entries written before the editor existed have
// only HTML; the service bootstraps an editor document from it on demand.
//
// Storage is pluggable through core.Repository. The default fs adapter keeps
// one Markdown file per entry and commits every change to Git; the badger
// adapter keeps entries in an embedded key-value store.
//
// Usage:
//
//	svc, err := inlay.New("./content",
//		inlay.WithAutoInit(true),
//		inlay.WithLogger(logger),
//	)
//
//	entry, err := svc.SaveEntry(ctx, core.Entry{
//		ID:   "blog/hello",
//		Kind: core.KindBlog,
//		Body: doc,
//	})
//	fmt.Println(entry.HTML)
package inlay
