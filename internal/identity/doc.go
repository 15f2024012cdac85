// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package identity maps local documents to remote book ids.

# Fingerprint

Fingerprint hashes sampled 1024-byte blocks of a file at offsets 0, 1024,
4096, 16384, ... (1024 << 2i with 32-bit shift semantics, i = -1..10),
stopping at end of file. The digest matches the one the host reader and
the remote server compute, so it identifies a document across devices
without reading the whole file.

# Resolution cascade

Resolver.Resolve tries, in order:

 1. the identity cache by content hash, or by locator when the cached hash
    matches the current one
 2. ISBN: a cached entry sharing the ISBN, then a remote ISBN search
 3. a remote lookup by content hash
 4. a remote title search, only when candidates are requested; results are
    returned for user confirmation and never accepted automatically

Every hit is written back to the identity cache. Remote misses are kept in a
negative cache for a while so one sync pass does not ask about the same
unknown book for every session.

ResolveCached is the network-free variant used for bulk extraction.
*/
package identity
