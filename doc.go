// Package indexsync keeps a relational store and a search index consistent.
//
// An Engine owns one search backend (embedded bleve, Redis or Valkey) and,
// optionally, the database the indexed rows live in. Typed indexes are
// declared from tagged structs:
//
//	type Post struct {
//	    ID        int64  `indexsync:"id,pk"`
//	    Title     string `indexsync:"title,text"`
//	    Slug      string `indexsync:"slug,keyword"`
//	    Published bool   `indexsync:"published"`
//	    Words     int    `indexsync:"words,integer,computed"`
//	}
//
//	engine, _ := indexsync.Open(ctx,
//	    indexsync.WithBleve(""),
//	    indexsync.WithDatabase("sqlite", "app.db"),
//	)
//	posts, _ := indexsync.NewIndex[Post](engine, "blog", "Post", indexsync.Table("posts"),
//	    indexsync.Computed("words", func(_ context.Context, p Post) (any, error) {
//	        return len(strings.Fields(p.Title)), nil
//	    }),
//	)
//	report, _ := engine.Rebuild(ctx)
//	hits, _ := posts.Search().Match("bulk").Where("slug", "bulk-indexing").Limit(10).Do(ctx)
//
// Values are normalised to the declared field type before indexing, so a row
// read from the database and the same struct passed to Index.Add produce the
// same document.
//
// Rebuild drops and recreates the index, saves the mapping of every
// registered type, bulk indexes the rows and refreshes the index. Single
// rows are kept in sync with Index.Add, Index.Delete and Index.Sync.
package indexsync
