// Package cowtarget implements a block-level copy-on-write virtual device.
//
// A Target presents a single logical block device backed by two physical
// devices: an origin, whose state at activation time is preserved forever,
// and a cow device, which receives the pre-write copy of any chunk touched
// after activation plus a small bitmap recording which chunks have been
// copied. Reads and writes are remapped to whichever device currently holds
// the authoritative data for their chunk; the first write to an untouched
// chunk triggers a copy-on-write job that copies the chunk, updates the
// bitmap in memory, persists the changed bitmap sector, and only then lets
// the write land on cow.
package cowtarget
