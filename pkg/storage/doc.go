// Package storage writes export files into the output directory.
//
// Files are written to a temporary name and renamed into place, so an
// interrupted export never leaves a truncated PDF or archive behind.
// UniqueName picks a free name so earlier exports are never overwritten.
//
// Usage:
//
//	manager, err := storage.NewManager("exports")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	name := manager.UniqueName("Album_2024-05-01_12-00-00", ".pdf")
//	path, err := manager.Save(name, func(w io.Writer) error {
//	    return collection.WritePDF(ctx, w)
//	})
package storage
