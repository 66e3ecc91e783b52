// Package dbus decodes the DBUS remote-control protocol.
package dbus

// DBUS is transmitted by the remote-control receiver over a half-duplex
// serial line (100000 baud, 8E2) as a continuous stream of fixed-size
// 18-byte frames without any start delimiter, length or checksum.
//
// Frame alignment is recovered with a content heuristic: the two 2-bit
// switch fields packed into byte 5 are only valid within {1,2,3}. This is
// NOT a checksum; a random byte stream may validate by coincidence.
// Receiver.Revalidate can be enabled to re-check every frame and fall back
// to synchronization on mismatch.
//
// Producer: remote-control receiver
// Consumer: Receiver, publishing decoded snapshots into a Store
