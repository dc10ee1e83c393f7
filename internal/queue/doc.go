// Package queue holds the durable post queue: the record model, the JSON
// file store (whole-document, atomic rewrite), the enqueue API with
// auto-slot scheduling, and due-record selection.
//
// Concurrency: mutations go through Store.Mutate, which holds an internal
// lock across the load-modify-persist sequence, so a dispatch cycle and an
// enqueue never interleave. Save is atomic on disk.
package queue
