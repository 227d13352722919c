// Package ir provides the attribute value model shared by every other package.
//
// Item, layout and configuration attributes are decoded from YAML front
// matter and configuration files into the sealed IRValue union. The union
// has a single canonical JSON encoding (RFC 8785 key order, NFC strings),
// and that encoding is what the Checksummer digests. Two attribute values
// that are logically equal therefore always produce the same checksum.
//
// ir imports nothing internal.
package ir
