// Package iio binds applications to an Industrial I/O engine: contexts,
// devices, channels and sample buffers.
//
// # Lifetime
//
// A *Context and a *Buffer each own one reference to the engine session.
// Clone adds an owner and Close drops one; the session is destroyed exactly
// once, when the last owner closes. Device and Channel values are views:
// they stay cheap to copy and fail with ErrClosed once the session is gone.
//
// # Concurrency
//
// A session is not safe for concurrent use. Drive a Context, and everything
// reached through it, from one goroutine at a time. Buffer.Cancel is the
// exception and may be called from any goroutine. To work from several
// goroutines, give each its own session with DeepClone.
//
// # Samples
//
// Channel data is read either in bulk with Read and ReadRaw, or in place
// with ChannelIter, which walks the buffer memory at the row stride without
// copying it. Both check that the requested Go type has the channel's byte
// width before touching memory. Values from ChannelIter are raw; apply
// Convert and the channel's scale and offset as needed.
package iio
