// Package server implements the MCP (Model Context Protocol) server for pellet
// area measurement.
//
// This package provides a JSON-RPC 2.0 server that exposes the measurement
// pipeline through the MCP protocol, so that an assistant can measure pellets
// photographed on millimetre graph paper.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image Information:
//   - image_load: Load a photograph and get metadata
//
// Grid Analysis:
//   - pellet_scale: Millimetres per pixel along x and y
//   - pellet_slope: Rotation of the grid lines
//   - pellet_edges: Canny edge map behind the slope estimate
//
// Measurement:
//   - pellet_segment: Pellet mask and overlay
//   - pellet_measure: Pellet area with propagated uncertainty
//   - pellet_calibrate: Pixel area from a labelled reference mask
//
// Every photograph tool accepts an optional region of interest. Photographs
// are resampled to the configured working size before measuring.
//
// # Image Caching
//
// The server maintains an in-memory cache of decoded photographs keyed by
// path. The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	cfg, err := config.Resolve(configPath)
//	if err != nil {
//	    return err
//	}
//	srv := server.New(cfg, log)
//	return srv.Run()
package server
