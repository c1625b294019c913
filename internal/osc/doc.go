// Package osc provides the two network endpoints a bridge session owns:
// a local UDP server that receives OSC requests and is also the source
// socket for everything the session sends, and a resolved destination that
// outgoing messages are addressed to.
//
// OSC packet encoding and decoding is delegated to
// github.com/hypebeast/go-osc; this package only deals with sockets,
// queueing and address helpers.
//
// Received messages are pushed onto a bounded queue consumed by the
// session goroutine. When the queue is full new messages are dropped and
// counted rather than blocking the socket reader.
package osc
