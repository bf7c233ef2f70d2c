// Package proxy implements the gateway's reverse-proxy transport: streaming
// HTTP forwarding with optional HTML fragment injection, raw bidirectional
// WebSocket splicing with symmetric close propagation, and a lightweight
// upstream health probe.
//
// Memory use is independent of payload size on both paths; bodies are
// streamed, never buffered whole.
package proxy
