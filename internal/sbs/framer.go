package sbs

import "strings"

// Framer reassembles discrete feed lines from a byte stream that arrives in
// arbitrary-sized chunks. A line split across any number of reads comes out
// exactly once; a trailing fragment stays buffered until its terminator
// arrives. Not safe for concurrent use; each connection owns one Framer.
type Framer struct {
	carry string
}

// Push appends a chunk and returns every line completed by it, in order.
// Carriage returns from CRLF-terminated feeds are stripped. Empty lines are
// dropped.
func (f *Framer) Push(chunk []byte) []string {
	f.carry += string(chunk)

	segments := strings.Split(f.carry, "\n")
	f.carry = segments[len(segments)-1]

	var lines []string
	for _, seg := range segments[:len(segments)-1] {
		seg = strings.TrimSuffix(seg, "\r")
		if seg == "" {
			continue
		}
		lines = append(lines, seg)
	}
	return lines
}

// Reset discards any buffered partial line. Called on disconnect; a fragment
// cut off by the network is never a decodable message.
func (f *Framer) Reset() {
	f.carry = ""
}
