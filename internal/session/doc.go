// Package session holds one firmware image and mediates every change to it.
//
// A Session moves through four states:
//
//	Empty --Load--> Loaded --ApplyEdit--> Edited --Finalize/Save--> Saved
//	                                        ^                         |
//	                                        +-------ApplyEdit---------+
//
// Load accepts only images whose length equals the profile size. ApplyEdit
// runs the validator and encoder before touching the buffer and then replaces
// the map's byte range in one copy, so a rejected edit never leaves a partial
// write behind. Finalize patches the checksum into a copy of the buffer and
// returns it; the live buffer is never checksummed in place, which keeps
// repeated finalizes deterministic.
//
// # Files
//
// LoadFile and Save wrap the in-memory contract with file I/O. Save writes
// through a temporary file and rename. Backup keeps a timestamped copy of a
// file before it is overwritten.
//
// # History
//
// Each successful edit records the bytes it replaced. Undo walks that
// history backwards; only the last MaxHistory edits are kept.
//
// # Events
//
// Subscribe registers callbacks for Loaded, Edited, Undone and Finalized
// events. The API server forwards them to WebSocket clients.
//
// A Session has no internal locking.
package session
