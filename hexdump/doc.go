// Package hexdump decodes the line-oriented hexadecimal text the target
// streams in hex transfer mode.
//
// The target never sends line breaks while streaming; it sends 8-digit words
// separated by spaces. The decoder cuts the stream into lines of 32 digits
// (16 bytes), synthesizes the address locally, and treats a line terminator
// as the end of the data.
package hexdump
