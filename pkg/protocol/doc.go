// Package protocol implements the binary wire protocol for SceneLink.
//
// SceneLink carries live 3D scene state between a content-producing endpoint
// (a DCC application holding scene state) and a remote consumer over a single
// ordered byte stream per session. The protocol multiplexes scene fetches,
// mutations, transactional delimiters, diagnostics, screenshot captures, and
// query/response exchanges.
//
// # Wire Format
//
// Every message travels inside a frame with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Kind        │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// The frame payload is the message envelope followed by the kind-specific
// payload:
//
//	[protocol_version:int32][session_id:int32][message_id:int32][sent_at:int64]
//	[kind-specific payload]
//
// Fixed-width integers and floats are big-endian. Strings and byte blobs are
// varint length-prefixed. Sequences are varint count-prefixed with elements in
// order. Every encoding is self-delimiting: a decoder never relies on stream
// EOF to find the end of a value.
//
// # Message Kinds
//
//   - Get (0x01): request a scene, carrying aspect flags and refine settings
//   - Set (0x02): one full scene snapshot (opaque, length-prefixed)
//   - Delete (0x03): identifier sequences for entities, materials, instances
//   - Fence (0x04): SceneBegin/SceneEnd transaction delimiter
//   - Text (0x05): diagnostic text with severity
//   - Screenshot (0x06): capture request, no payload
//   - Query (0x07): ClientName/RootNodes/AllNodes question
//   - Response (0x08): string sequence answering a Query
//   - Poll (0x09): long-lived SceneUpdate subscription
//
// # Versioning
//
// The envelope starts with the protocol version. Decoding compares it against
// Version immediately after reading it and fails with *VersionMismatchError
// before a single payload byte is interpreted; payload layouts are not stable
// across versions and reading one from a mismatched peer would desynchronize
// the stream.
//
// # Transactional Fencing
//
// A producer brackets one logical scene update between Fence(SceneBegin) and
// Fence(SceneEnd). All Set/Delete messages in between form one atomic unit.
// The protocol guarantees ordering only; staging and atomic application are
// the consumer's job (see the scene package).
//
// # Async Completion
//
// Get, Screenshot, Query, and Poll are requests whose answer is produced on
// another goroutine. Each carries an in-memory completion indicator with a
// single pending→ready transition. The resolver writes any result (a Query's
// Response) before completing, so a waiter that observes ready also observes
// the result. Completion state is never part of the wire encoding.
//
// # Usage
//
//	get := protocol.NewGetMessage()
//	get.Header().SessionID = sid
//	if err := protocol.WriteMessage(w, get); err != nil {
//	    // handle error
//	}
//
//	msg, err := protocol.ReadMessage(r)
//	var vm *protocol.VersionMismatchError
//	if errors.As(err, &vm) {
//	    // incompatible peer
//	}
package protocol
