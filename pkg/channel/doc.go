// Package channel drives instance-type changes over a WebSocket.
//
// A Manager owns the channels started from one page. Begin acquires the
// submitting form's gate, derives the channel URL from the form action and
// dials in the background. Once the channel opens the selected type is sent
// as a single text message, and every status frame the server streams back
// is decoded and applied to the form's View until a terminal frame or the
// channel's closure concludes the operation:
//
//	Idle -> Connecting -> Open -> (frame)* -> Terminated
//
// The lifecycle is the pure function Transition. The manager feeds it
// channel callbacks from a single event loop goroutine and performs the
// effects it returns, so views are never called concurrently.
//
// Every operation carries a liveness token. Events for an operation that
// terminated or was torn down are dropped, so a discarded channel can never
// touch a view again.
package channel
