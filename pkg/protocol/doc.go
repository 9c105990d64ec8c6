// Package protocol implements the status wire protocol spoken over a resize channel.
//
// The protocol is deliberately asymmetric. The client sends exactly one
// message after the channel opens: the requested instance type as a bare
// text payload with no envelope. The server answers with any number of
// status frames, each a JSON object with exactly two string fields:
//
//	{"Status": "message", "Message": "stopping"}
//	{"Status": "error",   "Message": "insufficient capacity"}
//	{"Status": "success", "Message": "done"}
//
// # Status Kinds
//
//   - KindProgress ("message"): Message carries a resource lifecycle phase
//     such as "running" or "stopping".
//   - KindError ("error"): Message is a human readable failure reported by
//     the server. The operation may be resubmitted.
//   - KindSuccess ("success"): the mutation completed. The server state is
//     authoritative from here on.
//
// # Decoding
//
// DecodeStatusFrame is strict. Unknown status tokens, missing or extra keys,
// non-string values and trailing data all yield a *DecodeError. Key names
// are matched case-sensitively.
//
// # Encoding
//
// EncodeCommand produces the single client payload. EncodeStatusFrame
// produces server frames and is used by test servers.
package protocol
