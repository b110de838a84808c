// Package protocol defines the wire vocabulary of the extraction firmware.
//
// # Commands
//
// Every command is a short ASCII code terminated by a line feed:
//
//   - A<hex> - set start address
//   - L<hex> - set length in bytes
//   - H      - hexadecimal transfer mode (B selects binary)
//   - e / E  - little / big endian words
//   - S      - start streaming
//   - P      - pause and print statistics
//
// Addresses and lengths are upper-case hexadecimal without "0x".
//
// # Status codes
//
// After a failed read the target prints "!ExtractionFailure" followed by an
// 8-digit hexadecimal status word; Describe maps that word to a diagnostic.
package protocol
