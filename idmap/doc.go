// Package idmap maps arbitrary external node ids to a dense internal id space.
//
// # Building
//
// A Builder accepts node insertions from any number of goroutines. Build
// turns them into an immutable ArrayIDMap:
//
//	b := idmap.NewBuilder()
//	b.AddNode(10, "Person")
//	b.AddNode(20)
//	m, err := b.Build(ctx, idmap.BuildConfig{Concurrency: 4, Checked: true})
//
// Dense ids follow insertion order unless BuildConfig.Sorted is set, in which
// case they follow ascending external id order. With Checked set, inserting
// the same external id twice fails the build with ErrDuplicateNodeID and no
// map is returned.
//
// # Labels
//
// Label membership is recorded in growable atomic bitsets during ingestion
// and transposed into roaring bitmaps over internal ids at build time. A
// graph loaded without any label carries the implicit model.AllNodes label on
// every node.
//
// # Filtered Maps
//
// WithFilteredLabels derives a FilteredIDMap over the nodes carrying any of
// the requested labels. It has its own dense id space and keeps a reference
// to the root map: ToExternal and ToInternal always speak external ids, while
// ToRootNodeID and ToFilteredNodeID translate between the two dense spaces.
package idmap
